package config_test

import (
	"strings"
	"testing"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/config"
)

func baseYAML(searchField string) string {
	return `
model:
  hmm: hmm.json
  dict: dict.json
` + searchField
}

func TestModelConfig_Spec(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cfg  config.ModelConfig
		want config.SearchSpec
	}{
		{"none", config.ModelConfig{}, config.SearchNone},
		{"lm", config.ModelConfig{Lm: "x"}, config.SearchNGram},
		{"fsg", config.ModelConfig{Fsg: "x"}, config.SearchFSG},
		{"jsgf", config.ModelConfig{Jsgf: "x"}, config.SearchJSGF},
		{"kws", config.ModelConfig{Kws: "x"}, config.SearchKeyword},
		{"align", config.ModelConfig{Align: "x"}, config.SearchAlign},
		{"allphone", config.ModelConfig{Allphone: "x"}, config.SearchAllphone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.cfg.Spec(); got != tt.want {
				t.Errorf("Spec() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSearchSpec_String(t *testing.T) {
	t.Parallel()
	tests := []struct {
		spec config.SearchSpec
		want string
	}{
		{config.SearchNone, "none"},
		{config.SearchNGram, "lm"},
		{config.SearchFSG, "fsg"},
		{config.SearchJSGF, "jsgf"},
		{config.SearchKeyword, "kws"},
		{config.SearchAlign, "align"},
		{config.SearchAllphone, "allphone"},
	}
	for _, tt := range tests {
		if got := tt.spec.String(); got != tt.want {
			t.Errorf("%v.String() = %q, want %q", int(tt.spec), got, tt.want)
		}
	}
}

func TestLoadFromReader_AllphoneIsAValidSoleSpec(t *testing.T) {
	t.Parallel()
	yaml := baseYAML("  allphone: ci.json\n")
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Model.Spec() != config.SearchAllphone {
		t.Errorf("Spec() = %v, want SearchAllphone", cfg.Model.Spec())
	}
}

func TestValidate_RejectsMultipleSearchSpecsIncludingAllphone(t *testing.T) {
	t.Parallel()
	yaml := baseYAML("  lm: lm.json\n  allphone: ci.json\n")
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for lm+allphone both set, got nil")
	}
	if !strings.Contains(err.Error(), "allphone") {
		t.Errorf("error should mention allphone, got: %v", err)
	}
}

func TestValidate_RejectsNoSearchSpec(t *testing.T) {
	t.Parallel()
	yaml := baseYAML("")
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for no search spec set, got nil")
	}
	if !strings.Contains(err.Error(), "none set") {
		t.Errorf("error should mention none set, got: %v", err)
	}
}

func TestBoolFlag_AcceptsAllFourSpellings(t *testing.T) {
	t.Parallel()
	yaml := baseYAML("  allphone: ci.json\n") + `
search:
  fwdtree: "yes"
  fwdflat: "off"
  bestpath: "1"
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if !bool(cfg.Search.FwdTree) {
		t.Error("fwdtree: \"yes\" should parse true")
	}
	if bool(cfg.Search.FwdFlat) {
		t.Error("fwdflat: \"off\" should parse false")
	}
	if !bool(cfg.Search.BestPath) {
		t.Error("bestpath: 1 should parse true")
	}
}

func TestBoolFlag_RejectsUnknownSpelling(t *testing.T) {
	t.Parallel()
	yaml := baseYAML("  allphone: ci.json\n") + `
search:
  fwdtree: "maybe"
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal(`expected error for fwdtree: "maybe", got nil`)
	}
}
