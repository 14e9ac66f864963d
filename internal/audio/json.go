package audio

import (
	"encoding/json"
	"io"
)

func readJSON(r io.Reader, v interface{}) error {
	return json.NewDecoder(r).Decode(v)
}
