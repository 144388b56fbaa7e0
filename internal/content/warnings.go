package content

import (
	"fmt"
	"strings"
)

const (
	WarnUnknownBlockType   = "UNKNOWN_BLOCK_TYPE"
	WarnSectionUnresolved  = "SECTION_REFERENCE_UNRESOLVED"
	WarnDuplicateBlockType = "DUPLICATE_BLOCK_TYPES"
	WarnHomeSeedFailed     = "HOME_SEED_FAILED"
	WarnReservedDataKey    = "RESERVED_DATA_KEY"
)

// ReservedDataKey is the data key the editor tree uses for block identity.
// A data field by that name is lost when the block passes through the editor.
const ReservedDataKey = "id"

// Warning is a content anomaly that did not stop the operation.
type Warning struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	BlockID     string `json:"blockId,omitempty"`
	BlockType   string `json:"blockType,omitempty"`
	SectionID   string `json:"sectionId,omitempty"`
	SectionName string `json:"sectionName,omitempty"`
}

func UnknownBlockType(b Block) Warning {
	return Warning{
		Code:      WarnUnknownBlockType,
		Message:   fmt.Sprintf("block type %q is not registered and will render as a placeholder", b.Type),
		BlockID:   b.ID,
		BlockType: b.Type,
	}
}

func ReservedKey(b Block) Warning {
	return Warning{
		Code:      WarnReservedDataKey,
		Message:   fmt.Sprintf("data field %q is reserved for the block id and is dropped by the editor", ReservedDataKey),
		BlockID:   b.ID,
		BlockType: b.Type,
	}
}

func SectionUnresolved(b Block, sectionID string, cause error) Warning {
	msg := fmt.Sprintf("section %q could not be resolved; reference kept", sectionID)
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return Warning{
		Code:      WarnSectionUnresolved,
		Message:   msg,
		BlockID:   b.ID,
		BlockType: b.Type,
		SectionID: sectionID,
	}
}

func DuplicateBlockTypes(sectionID, sectionName string, types []string) Warning {
	return Warning{
		Code:        WarnDuplicateBlockType,
		Message:     fmt.Sprintf("section %q repeats block types already on the page: %s", sectionName, strings.Join(types, ", ")),
		SectionID:   sectionID,
		SectionName: sectionName,
	}
}

func HomeSeedFailed(cause error) Warning {
	return Warning{
		Code:    WarnHomeSeedFailed,
		Message: fmt.Sprintf("home page was not seeded: %v", cause),
	}
}
