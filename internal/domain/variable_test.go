package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exdform/internal/domain"
)

func TestParseModalities(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []domain.Modality
	}{
		{
			name: "hyphen and colon separators",
			in:   "1 - Red, 2: Blue,3Green",
			want: []domain.Modality{{1, "Red"}, {2, "Blue"}, {3, "Green"}},
		},
		{
			name: "newline separated",
			in:   "1 - Oui\n2 - Non\n 9 : NSP ",
			want: []domain.Modality{{1, "Oui"}, {2, "Non"}, {9, "NSP"}},
		},
		{
			name: "garbage yields nothing",
			in:   "no codes here",
			want: nil,
		},
		{
			name: "empty",
			in:   "",
			want: nil,
		},
		{
			name: "unmatched fragments dropped",
			in:   "Red, 2 - Blue, ???",
			want: []domain.Modality{{2, "Blue"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ParseModalities(tt.in))
		})
	}
}

func TestParseVariableType(t *testing.T) {
	cases := map[string]domain.VariableType{
		"NUMERIC_CONTINUOUS":      domain.TypeNumericContinuous,
		" num_continue ":          domain.TypeNumericContinuous,
		"NUM_DISCRETE":            domain.TypeNumericDiscrete,
		"texte":                   domain.TypeText,
		"BINAIRE":                 domain.TypeBinary,
		"Categorielle":            domain.TypeCategorical,
		"CATEGORIELLE_MULTIPLE":   domain.TypeCategoricalMultiselect,
		"categorical_multiselect": domain.TypeCategoricalMultiselect,
		"date":                    domain.TypeDate,
		"TEMPS":                   domain.TypeTime,
	}
	for in, want := range cases {
		got, err := domain.ParseVariableType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := domain.ParseVariableType("GEOPOINT")
	assert.True(t, errors.Is(err, domain.ErrUnknownVariableType))
}

func TestNewVariable(t *testing.T) {
	v, err := domain.NewVariable("  colour ", " Favourite colour ", "1 - Red, 2 - Blue", "CATEGORIELLE_MULTIPLE", "")
	require.NoError(t, err)

	assert.Equal(t, "colour", v.Name())
	assert.Equal(t, "Favourite colour", v.Description())
	assert.Equal(t, domain.TypeCategoricalMultiselect, v.Type())
	assert.Equal(t, 0, v.MaxLength())
	assert.Equal(t, []string{"Red", "Blue"}, v.Keys())
}

func TestNewVariable_ModalitiesOnlyForCategorical(t *testing.T) {
	for _, typ := range []string{"TEXT", "BINARY", "DATE", "TIME", "NUM_CONTINUE"} {
		v, err := domain.NewVariable("x", "", "1 - A, 2 - B", typ, "")
		require.NoError(t, err)
		assert.Empty(t, v.Modalities(), typ)
		assert.Equal(t, []string{"x"}, v.Keys(), typ)
	}
}

func TestNewVariable_MaxLength(t *testing.T) {
	cases := map[string]int{
		"10":  10,
		" 3 ": 3,
		"0":   0,
		"-4":  0,
		"12a": 0,
		"":    0,
		"3.5": 0,
	}
	for in, want := range cases {
		v, err := domain.NewVariable("x", "", "", "TEXT", in)
		require.NoError(t, err)
		assert.Equal(t, want, v.MaxLength(), "input %q", in)
	}
}

func TestNewVariable_UnknownType(t *testing.T) {
	_, err := domain.NewVariable("x", "", "", "ID", "")
	require.ErrorIs(t, err, domain.ErrUnknownVariableType)
}

func TestVariable_ModalitiesReturnsCopy(t *testing.T) {
	v, err := domain.NewVariable("c", "", "1 - A", "CATEGORICAL", "")
	require.NoError(t, err)

	m := v.Modalities()
	m[0].Label = "changed"
	assert.Equal(t, "A", v.Modalities()[0].Label)
}

func TestVariable_Label(t *testing.T) {
	v, _ := domain.NewVariable("age", "", "", "NUM_DISCRETE", "")
	assert.Equal(t, "age", v.Label())

	v, _ = domain.NewVariable("age", "Age in years", "", "NUM_DISCRETE", "")
	assert.Equal(t, "Age in years", v.Label())
}
