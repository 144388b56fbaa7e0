package blocks

const (
	CategoryLayout   = "layout"
	CategoryContent  = "content"
	CategoryCommerce = "commerce"
	CategorySocial   = "social"
	CategoryConvert  = "conversion"
	CategoryLibrary  = "library"
)

func bound(v float64) *float64 { return &v }

var alignOptions = []Option{
	{Label: "Left", Value: "left"},
	{Label: "Center", Value: "center"},
	{Label: "Right", Value: "right"},
}

// RegisterDefaults installs the built-in block catalog into reg.
func RegisterDefaults(reg *Registry) {
	for _, entry := range defaultEntries() {
		_ = reg.Register(entry)
	}
}

func defaultEntries() []Entry {
	return []Entry{
		{
			Type:     TypeHero,
			Label:    "Hero",
			Category: CategoryLayout,
			DefaultProps: map[string]any{
				"headline":        "Welcome to our store",
				"subheadline":     "",
				"ctaText":         "Shop now",
				"ctaLink":         "/shop",
				"backgroundImage": "",
				"alignment":       "center",
			},
			Fields: map[string]Field{
				"headline":        {Type: FieldText, Label: "Headline"},
				"subheadline":     {Type: FieldTextarea, Label: "Subheadline"},
				"ctaText":         {Type: FieldText, Label: "Button text"},
				"ctaLink":         {Type: FieldURL, Label: "Button link"},
				"backgroundImage": {Type: FieldImage, Label: "Background image"},
				"alignment":       {Type: FieldSelect, Label: "Alignment", Options: alignOptions},
			},
			Render: renderHero,
		},
		{
			Type:         TypeRichText,
			Label:        "Rich text",
			Category:     CategoryContent,
			DefaultProps: map[string]any{"markdown": ""},
			Fields: map[string]Field{
				"markdown": {Type: FieldTextarea, Label: "Body"},
			},
			Render: renderRichText,
		},
		{
			Type:         TypeImage,
			Label:        "Image",
			Category:     CategoryContent,
			DefaultProps: map[string]any{"src": "", "alt": "", "caption": ""},
			Fields: map[string]Field{
				"src":     {Type: FieldImage, Label: "Image"},
				"alt":     {Type: FieldText, Label: "Alt text"},
				"caption": {Type: FieldText, Label: "Caption"},
			},
			Render: renderImage,
		},
		{
			Type:     TypeFeatures,
			Label:    "Features",
			Category: CategoryContent,
			DefaultProps: map[string]any{
				"heading": "Why shop with us",
				"columns": float64(3),
				"items":   []any{},
			},
			Fields: map[string]Field{
				"heading": {Type: FieldText, Label: "Heading"},
				"columns": {Type: FieldNumber, Label: "Columns", Min: bound(1), Max: bound(4)},
				"items":   {Type: FieldList, Label: "Features"},
			},
			Render: renderFeatures,
		},
		{
			Type:     TypeProductHighlight,
			Label:    "Product highlight",
			Category: CategoryCommerce,
			DefaultProps: map[string]any{
				"productId": "",
				"headline":  "",
				"showPrice": true,
			},
			Fields: map[string]Field{
				"productId": {Type: FieldProduct, Label: "Product"},
				"headline":  {Type: FieldText, Label: "Headline"},
				"showPrice": {Type: FieldBoolean, Label: "Show price"},
			},
			Render: renderProductHighlight,
		},
		{
			Type:     TypeProductGrid,
			Label:    "Product grid",
			Category: CategoryCommerce,
			DefaultProps: map[string]any{
				"heading":    "Featured products",
				"productIds": []any{},
				"columns":    float64(3),
				"limit":      float64(6),
			},
			Fields: map[string]Field{
				"heading":    {Type: FieldText, Label: "Heading"},
				"productIds": {Type: FieldProducts, Label: "Products"},
				"columns":    {Type: FieldNumber, Label: "Columns", Min: bound(1), Max: bound(6)},
				"limit":      {Type: FieldNumber, Label: "Limit", Min: bound(1), Max: bound(24)},
			},
			Render: renderProductGrid,
		},
		{
			Type:     TypeTestimonials,
			Label:    "Testimonials",
			Category: CategorySocial,
			DefaultProps: map[string]any{
				"heading": "What our customers say",
				"items":   []any{},
			},
			Fields: map[string]Field{
				"heading": {Type: FieldText, Label: "Heading"},
				"items":   {Type: FieldList, Label: "Testimonials"},
			},
			Render: renderTestimonials,
		},
		{
			Type:     TypeFAQ,
			Label:    "FAQ",
			Category: CategoryContent,
			DefaultProps: map[string]any{
				"heading": "Frequently asked questions",
				"items":   []any{},
			},
			Fields: map[string]Field{
				"heading": {Type: FieldText, Label: "Heading"},
				"items":   {Type: FieldList, Label: "Questions"},
			},
			Render: renderFAQ,
		},
		{
			Type:     TypeCTA,
			Label:    "Call to action",
			Category: CategoryConvert,
			DefaultProps: map[string]any{
				"headline":   "Ready to get started?",
				"buttonText": "Shop now",
				"buttonLink": "/shop",
				"style":      "primary",
			},
			Fields: map[string]Field{
				"headline":   {Type: FieldText, Label: "Headline"},
				"buttonText": {Type: FieldText, Label: "Button text"},
				"buttonLink": {Type: FieldURL, Label: "Button link"},
				"style": {Type: FieldSelect, Label: "Style", Options: []Option{
					{Label: "Primary", Value: "primary"},
					{Label: "Secondary", Value: "secondary"},
					{Label: "Outline", Value: "outline"},
				}},
			},
			Render: renderCTA,
		},
		{
			Type:     TypeNewsletter,
			Label:    "Newsletter signup",
			Category: CategoryConvert,
			DefaultProps: map[string]any{
				"heading":     "Stay in the loop",
				"placeholder": "you@example.com",
				"buttonText":  "Subscribe",
			},
			Fields: map[string]Field{
				"heading":     {Type: FieldText, Label: "Heading"},
				"placeholder": {Type: FieldText, Label: "Placeholder"},
				"buttonText":  {Type: FieldText, Label: "Button text"},
			},
			Render: renderNewsletter,
		},
		{
			Type:         TypeSectionRef,
			Label:        "Linked section",
			Category:     CategoryLibrary,
			DefaultProps: map[string]any{"sectionId": "", "sectionName": ""},
			Fields: map[string]Field{
				"sectionId": {Type: FieldSection, Label: "Section"},
			},
			Render: renderSectionPlaceholder,
		},
	}
}
