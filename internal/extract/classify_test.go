package extract

import (
	"reflect"
	"testing"

	"sportcal/internal/config"
)

func testRules() []config.KeywordRule {
	return []config.KeywordRule{
		{Keyword: "futebol", Category: "Futebol"},
		{Keyword: "brasileirão", Category: "Futebol"},
		{Keyword: "wta", Category: "Tênis"},
		{Keyword: "atp", Category: "Tênis"},
		{Keyword: "volei", Category: "Vôlei"},
		{Keyword: "surf", Category: "Surfe"},
	}
}

func TestClassifierCategories(t *testing.T) {
	c := NewClassifier(testRules())

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "two sports in one blob",
			text: "06h00 Brasileirão Série A | 10h00 WTA 500 Monterrey",
			want: []string{"Futebol", "Tênis"},
		},
		{
			name: "case insensitive",
			text: "FUTEBOL AO VIVO",
			want: []string{"Futebol"},
		},
		{
			name: "two keywords one category deduplicates",
			text: "futebol pelo brasileirão",
			want: []string{"Futebol"},
		},
		{
			name: "substring match without word boundary",
			text: "circuitowtafinals",
			want: []string{"Tênis"},
		},
		{
			name: "no match",
			text: "programação de culinária",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Categories(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Categories(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifierFirstCategory(t *testing.T) {
	c := NewClassifier(testRules())

	// Both futebol and surf occur; table order decides.
	got, ok := c.FirstCategory("surf e futebol no mesmo dia")
	if !ok || got != "Futebol" {
		t.Errorf("FirstCategory = %q/%v, want Futebol/true", got, ok)
	}

	if _, ok := c.FirstCategory("nada aqui"); ok {
		t.Error("FirstCategory matched text with no keywords")
	}
}

func TestClassifierIgnoresBlankRules(t *testing.T) {
	c := NewClassifier([]config.KeywordRule{
		{Keyword: "", Category: "Broken"},
		{Keyword: "  WTA  ", Category: "Tênis"},
	})

	got := c.Categories("final do wta")
	if !reflect.DeepEqual(got, []string{"Tênis"}) {
		t.Errorf("Categories = %v, want [Tênis]", got)
	}
}
