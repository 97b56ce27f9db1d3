package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestElementHasClass(t *testing.T) {
	el := Element{Text: "3", Attrs: map[string]string{"class": "button  button--active"}}

	assert.True(t, el.HasClass("button--active"))
	assert.True(t, el.HasClass("button"))
	assert.False(t, el.HasClass("button--"))
	assert.False(t, Element{}.HasClass("button"))
}

func TestElementAttr(t *testing.T) {
	el := Element{Attrs: map[string]string{"aria-disabled": "true"}}

	v, ok := el.Attr("aria-disabled")
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	_, ok = el.Attr("data-href")
	assert.False(t, ok)
}

func TestJSStringEscapes(t *testing.T) {
	assert.Equal(t, `"[name=club_kits_table_length]"`, jsString("[name=club_kits_table_length]"))
	assert.Equal(t, `"a\"b"`, jsString(`a"b`))
}
