package sources

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAbsoluteURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		href string
		want string
	}{
		{"already absolute", "https://a.cn", "https://b.cn/x", "https://b.cn/x"},
		{"protocol relative", "https://a.cn", "//cdn.a.cn/x", "https://cdn.a.cn/x"},
		{"rooted path", "https://a.cn", "/rmrb/1", "https://a.cn/rmrb/1"},
		{"base with trailing slash", "https://a.cn/", "/rmrb/1", "https://a.cn/rmrb/1"},
		{"empty", "https://a.cn", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, absoluteURL(tt.base, tt.href))
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"plain", "358", 358},
		{"comma separated", "1,204 Likes", 1204},
		{"wan suffix", "1.2万", 12000},
		{"wan integer", "3万", 30000},
		{"empty", "", 0},
		{"no digits", "赞", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, parseCount(tt.text))
		})
	}
}

func TestBestEffortItemExtractsReadableContent(t *testing.T) {
	body := []byte(`<html><head><title>Economia em foco</title></head><body>
<article>
<h1>Economia em foco</h1>
<p>O crescimento do produto interno bruto superou as projeções dos analistas
neste trimestre, impulsionado pelo consumo das famílias e pelos investimentos
em infraestrutura pública anunciados no início do ano.</p>
<p>Os dados divulgados nesta semana indicam que a tendência deve continuar ao
longo do próximo semestre, segundo economistas consultados.</p>
</article></body></html>`)

	item, ok := bestEffortItem("https://example.org/economia", body)
	require.True(t, ok)
	require.Equal(t, "https://example.org/economia", item.ExternalID)
	require.Contains(t, item.Text, "produto interno bruto")
	require.Equal(t, "best_effort", item.Metadata["extraction"])
}

func TestBestEffortItemFailsOnEmptyPage(t *testing.T) {
	_, ok := bestEffortItem("https://example.org/x", []byte("<html><body></body></html>"))
	require.False(t, ok)
}
