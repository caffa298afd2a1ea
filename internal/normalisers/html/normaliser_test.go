package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func normalise(t *testing.T, content string) string {
	t.Helper()
	got, err := New().Normalise(context.Background(), &domain.RawDocument{FileName: "page.html", Content: []byte(content)})
	require.NoError(t, err)
	return got
}

func TestNormalise_StripsMarkup(t *testing.T) {
	got := normalise(t, `<html><head><title>Colours</title><style>p{}</style></head>
<body><h1>Colours</h1><p>The sky is <b>blue</b>.</p><p>Grass&nbsp;is green &amp; lush.</p>
<script>alert(1)</script></body></html>`)

	assert.Equal(t, "Colours\n\nThe sky is blue.\n\nGrass is green & lush.", got)
}

func TestNormalise_TitlePrepended(t *testing.T) {
	got := normalise(t, `<title>Guide</title><div>Step one</div>`)
	assert.Equal(t, "Guide\n\nStep one", got)
}

func TestNormalise_LineBreaks(t *testing.T) {
	got := normalise(t, `<p>a<br>b<br/>c</p>`)
	assert.Equal(t, "a\nb\nc", got)
}

func TestNormalise_NonBreakingSpaces(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"entity", `<p>Grass&nbsp;is&nbsp;green.</p>`},
		{"numeric entity", `<p>Grass&#160;is&#xA0;green.</p>`},
		{"raw character", "<p>Grass\u00a0is\u00a0green.</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalise(t, tt.input)
			assert.Equal(t, "Grass is green.", got)
			assert.NotContains(t, got, "\u00a0")
		})
	}
}

func TestNormalise_CommentsAndEmpty(t *testing.T) {
	assert.Equal(t, "", normalise(t, `<!-- nothing --><div>   </div>`))
}

func TestNormalise_NilDocument(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
