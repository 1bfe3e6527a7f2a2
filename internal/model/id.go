// Package model はドメインモデルを定義する。
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID は外部APIが払い出すレコード識別子を表す。
// 外部APIは数値IDを返すが、文字列IDにも対応できるよう不透明な文字列として保持する。
type ID string

// UnmarshalJSON はJSONの数値・文字列どちらのIDも受け付ける。
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// String はIDの文字列表現を返す。
func (id ID) String() string {
	return string(id)
}
