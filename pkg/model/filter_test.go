package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_ValidIdentifier(t *testing.T) {

	filter := Filter{
		Include: []string{"2103.00001"},
		Exclude: []string{"test/*", "2103.*"},
	}

	assert.True(t, filter.ValidIdentifier("1234.56789"))
	assert.True(t, filter.ValidIdentifier("cs/9901001"))

	assert.False(t, filter.ValidIdentifier("test/0001001"))
	assert.False(t, filter.ValidIdentifier("2103.12345"))

	//explicit include wins over the 2103.* exclude
	assert.True(t, filter.ValidIdentifier("2103.00001"))
}

func TestFilter_FromJson(t *testing.T) {

	bodyJson := `
{
  "include": [],
  "exclude": [
    "test/*",
    "dev/*"
  ]
}
`

	var filter Filter
	err := json.Unmarshal([]byte(bodyJson), &filter)
	assert.Nil(t, err)

	assert.True(t, filter.ValidIdentifier("2101.04001"))
	assert.True(t, filter.ValidIdentifier("math/0405001"))

	assert.False(t, filter.ValidIdentifier("test/0001001"))
	assert.False(t, filter.ValidIdentifier("dev/0001002"))
}
