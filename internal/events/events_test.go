package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	data    []byte
}

// fakeJetStream satisfies jetstream.JetStream; only Publish is exercised.
type fakeJetStream struct {
	jetstream.JetStream
	msgs []published
	err  error
}

func (f *fakeJetStream) Publish(_ context.Context, subject string, data []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.msgs = append(f.msgs, published{subject: subject, data: data})
	return &jetstream.PubAck{Stream: "STOREFRONT", Sequence: uint64(len(f.msgs))}, nil
}

func TestPublishPrefixesSubjectAndStampsTime(t *testing.T) {
	js := &fakeJetStream{}
	p := newJetStreamPublisher(nil, js, "storefront", slog.Default())
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	err := p.Publish(context.Background(), Event{Subject: SubjectPresetActivated, PresetID: "classic", Revision: 3})
	require.NoError(t, err)
	require.Len(t, js.msgs, 1)
	assert.Equal(t, "storefront.site.preset.activated", js.msgs[0].subject)

	var evt Event
	require.NoError(t, json.Unmarshal(js.msgs[0].data, &evt))
	assert.Equal(t, "classic", evt.PresetID)
	assert.Equal(t, int64(3), evt.Revision)
	assert.True(t, evt.OccurredAt.Equal(fixed))
}

func TestPublishWithoutPrefix(t *testing.T) {
	js := &fakeJetStream{}
	p := newJetStreamPublisher(nil, js, "", slog.Default())
	require.NoError(t, p.Publish(context.Background(), Event{Subject: SubjectPageSaved, PageID: "pg_1"}))
	assert.Equal(t, SubjectPageSaved, js.msgs[0].subject)
}

func TestPublishWrapsError(t *testing.T) {
	boom := errors.New("no responders")
	p := newJetStreamPublisher(nil, &fakeJetStream{err: boom}, "storefront", slog.Default())
	err := p.Publish(context.Background(), Event{Subject: SubjectPageSaved})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "storefront.page.saved")
}

func TestCloseWithoutConnection(t *testing.T) {
	p := newJetStreamPublisher(nil, &fakeJetStream{}, "storefront", slog.Default())
	assert.NoError(t, p.Close())
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{Subject: SubjectPageSaved}))
	assert.NoError(t, p.Close())
}
