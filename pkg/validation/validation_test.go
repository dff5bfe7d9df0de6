package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" validate:"notblank,max=5"`
	Cost  int    `json:"cost" validate:"gte=0"`
	DOB   string `json:"dob" validate:"dob"`
	Items []item `json:"items" validate:"dive"`
}

type item struct {
	Label string `yaml:"label" validate:"required"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name   string
		in     sample
		fields []string
	}{
		{name: "valid", in: sample{Name: "An", DOB: "01/02/2013"}},
		{name: "iso date", in: sample{Name: "An", DOB: "2013-02-01"}},
		{name: "blank name", in: sample{Name: "   "}, fields: []string{"name"}},
		{name: "long name", in: sample{Name: "Nguyễn"}, fields: []string{"name"}},
		{name: "negative cost", in: sample{Name: "An", Cost: -1}, fields: []string{"cost"}},
		{name: "bad dob", in: sample{Name: "An", DOB: "1 Feb 2013"}, fields: []string{"dob"}},
		{name: "nested", in: sample{Name: "An", Items: []item{{Label: "x"}, {}}}, fields: []string{"items[1].label"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			var verr *Error
			require.ErrorAs(t, err, &verr)
			for _, f := range tt.fields {
				assert.Contains(t, verr.Fields, f)
			}
		})
	}
}

func TestError_MessageIsSorted(t *testing.T) {
	err := &Error{Fields: map[string]string{"b": "bad", "a": "worse"}}
	assert.Equal(t, "a: worse; b: bad", err.Error())
}

func TestStruct_CustomMessages(t *testing.T) {
	err := Struct(sample{Name: " ", DOB: "x"})
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name cannot be blank", verr.Fields["name"])
	assert.Equal(t, "dob must look like dd/mm/yyyy or yyyy-mm-dd", verr.Fields["dob"])
}
