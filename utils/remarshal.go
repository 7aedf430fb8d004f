package utils

import (
	json2 "github.com/go-json-experiment/json"
)

// Remarshal converts between structurally compatible values by passing
// them through JSON.
func Remarshal(input interface{}, output interface{}) (err error) {
	b, err := json2.Marshal(input)
	if nil != err {
		return
	}
	return json2.Unmarshal(b, output)
}
