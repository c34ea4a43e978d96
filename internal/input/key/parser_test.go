package key

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		spec string
		want ShortcutKind
	}{
		{"c", ShortcutSingle},
		{"esc", ShortcutSingle},
		{"+", ShortcutSingle},
		{" ", ShortcutSingle},
		{"CTRL+ret", ShortcutCombo},
		{"a+", ShortcutCombo},
		{"g i", ShortcutSequence},
		{"ctrl+a b", ShortcutCombo},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			sc := Classify(tt.spec)
			assert.Equal(t, tt.want, sc.Kind)
			assert.Equal(t, tt.spec, sc.Spec)
		})
	}
}

func TestParseCombo(t *testing.T) {
	r := DefaultResolver()

	combo, err := r.ParseCombo("CTRL+ret")
	require.NoError(t, err)
	assert.Equal(t, ModCtrl, combo.Modifier)
	assert.Equal(t, CodeReturn, combo.Code)

	combo, err = r.ParseCombo("cmd+A")
	require.NoError(t, err)
	assert.Equal(t, ModCmd, combo.Modifier)
	assert.Equal(t, Code('a'), combo.Code)
}

func TestParseComboErrors(t *testing.T) {
	tests := []struct {
		spec string
		want error
	}{
		{"ctrl+a+b", ErrInvalidCombo},
		{"ctrl", ErrInvalidCombo},
		{"hyper+a", ErrInvalidModifier},
		{"a+", ErrInvalidModifier},
		{"ctrl+nope", ErrInvalidKey},
		{"ctrl+", ErrInvalidKey},
	}

	r := DefaultResolver()
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			_, err := r.ParseCombo(tt.spec)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseSequence(t *testing.T) {
	r := DefaultResolver()

	seq, err := r.ParseSequence("g I")
	require.NoError(t, err)
	assert.Equal(t, "g", seq.Start)
	assert.Equal(t, "I", seq.End)
	assert.Equal(t, Code('g'), seq.StartCode)
	assert.Equal(t, Code('i'), seq.EndCode)
	assert.Equal(t, "g I", seq.String())
}

func TestParseSequenceErrors(t *testing.T) {
	r := DefaultResolver()

	for _, spec := range []string{"g", "g i x", "g  i", "g nope", "nope i"} {
		_, err := r.ParseSequence(spec)
		assert.ErrorIs(t, err, ErrInvalidSequenceFormat, spec)
	}

	_, err := r.ParseSequence("g nope")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestValidate(t *testing.T) {
	r := DefaultResolver()

	for _, spec := range []string{"c", "?", "esc", "shift+/", "g i", "ctrl+ret"} {
		assert.NoError(t, r.Validate(spec), spec)
	}
	for _, spec := range []string{"", "ctrl+a+b", "g i x", "zz"} {
		assert.Error(t, r.Validate(spec), spec)
	}
}
