package whisper

import "strings"

// Model is a ggml checkpoint usable by whisper-cli.
type Model struct {
	ID           string
	Name         string
	Filename     string
	Size         string
	SizeBytes    int64
	Multilingual bool
}

// english-only models are faster; captions of foreign audio need a multilingual one
var catalog = []Model{
	{ID: "tiny.en", Name: "Tiny English", Filename: "ggml-tiny.en.bin", Size: "75MB", SizeBytes: 75_000_000},
	{ID: "base.en", Name: "Base English", Filename: "ggml-base.en.bin", Size: "142MB", SizeBytes: 142_000_000},
	{ID: "small.en", Name: "Small English", Filename: "ggml-small.en.bin", Size: "466MB", SizeBytes: 466_000_000},
	{ID: "medium.en", Name: "Medium English", Filename: "ggml-medium.en.bin", Size: "1.5GB", SizeBytes: 1_500_000_000},

	{ID: "tiny", Name: "Tiny", Filename: "ggml-tiny.bin", Size: "75MB", SizeBytes: 75_000_000, Multilingual: true},
	{ID: "base", Name: "Base", Filename: "ggml-base.bin", Size: "142MB", SizeBytes: 142_000_000, Multilingual: true},
	{ID: "small", Name: "Small", Filename: "ggml-small.bin", Size: "466MB", SizeBytes: 466_000_000, Multilingual: true},
	{ID: "medium", Name: "Medium", Filename: "ggml-medium.bin", Size: "1.5GB", SizeBytes: 1_500_000_000, Multilingual: true},
	{ID: "large-v3", Name: "Large V3", Filename: "ggml-large-v3.bin", Size: "3GB", SizeBytes: 3_000_000_000, Multilingual: true},
	{ID: "large-v3-turbo", Name: "Large V3 Turbo", Filename: "ggml-large-v3-turbo.bin", Size: "1.6GB", SizeBytes: 1_620_000_000, Multilingual: true},
}

// Lookup finds a model by ID.
func Lookup(id string) (Model, bool) {
	id = strings.TrimSpace(id)
	for _, m := range catalog {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// Models returns the catalog in display order.
func Models() []Model {
	out := make([]Model, len(catalog))
	copy(out, catalog)
	return out
}

// SupportsLanguage reports whether m can transcribe lang ("" means auto-detect).
func (m Model) SupportsLanguage(lang string) bool {
	return m.Multilingual || lang == "en"
}
