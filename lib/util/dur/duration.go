package dur

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that can be read from config as either a
// duration string ("30s") or a number of nanoseconds.
type Duration time.Duration

func (T Duration) Duration() time.Duration {
	return time.Duration(T)
}

func (T Duration) String() string {
	return time.Duration(T).String()
}

func (T *Duration) UnmarshalJSON(bytes []byte) error {
	// try as string
	var str string
	if err := json.Unmarshal(bytes, &str); err == nil {
		*(*time.Duration)(T), err = time.ParseDuration(str)
		return err
	}

	// try num
	var num int64
	if err := json.Unmarshal(bytes, &num); err != nil {
		return err
	}
	*T = Duration(num)

	return nil
}

func (T *Duration) UnmarshalText(text []byte) error {
	var err error
	*(*time.Duration)(T), err = time.ParseDuration(string(text))
	return err
}

func (T Duration) MarshalText() ([]byte, error) {
	return []byte(T.String()), nil
}

func (T *Duration) UnmarshalYAML(node *yaml.Node) error {
	// try num first so bare nanosecond counts stay numbers
	var num int64
	if err := node.Decode(&num); err == nil {
		*T = Duration(num)
		return nil
	}

	var str string
	if err := node.Decode(&str); err != nil {
		return fmt.Errorf("invalid duration: %s", node.Value)
	}
	return T.UnmarshalText([]byte(str))
}

var _ json.Unmarshaler = (*Duration)(nil)
var _ yaml.Unmarshaler = (*Duration)(nil)
