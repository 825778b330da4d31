package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"chinese", "中国经济持续增长，消费市场活跃。", "zh"},
		{"english", "The economy grew faster than expected this quarter.", "en"},
		{"mixed mostly han", "经济增长 GDP 数据公布", "zh"},
		{"empty", "", ""},
		{"digits only", "123 456", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, DetectLanguage(tt.text))
		})
	}
}
