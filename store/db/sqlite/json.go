package sqlite

import (
	"encoding/json"

	"github.com/pkg/errors"
)

func marshalStringMap(m map[string]string) (string, error) {
	if m == nil {
		m = map[string]string{}
	}
	buf, err := json.Marshal(m)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal attribute map")
	}
	return string(buf), nil
}

func unmarshalStringMap(raw string) (map[string]string, error) {
	m := map[string]string{}
	if raw == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal attribute map")
	}
	return m, nil
}

func marshalStringList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	buf, err := json.Marshal(list)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal string list")
	}
	return string(buf), nil
}

func unmarshalStringList(raw string) ([]string, error) {
	list := []string{}
	if raw == "" {
		return list, nil
	}
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal string list")
	}
	return list, nil
}
