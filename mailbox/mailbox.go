// Package mailbox はFromなどのアドレスヘッダからaddr-specを取り出すパッケージです。
// RFC 5322のアドレス構文のうち署名・検証処理に必要な範囲のみを扱います。
package mailbox

import (
	"errors"
	"strings"
)

var (
	ErrInvalidEmailFormat = errors.New("invalid email address format")
)

// Address は1つのaddr-specをローカルパートとドメインに分けたものです。
type Address struct {
	Local  string
	Domain string
}

// Extract はヘッダ値から最初のaddr-specを取り出す関数です。
// 山括弧がある場合は最初の<...>の中身を、ない場合はコメントを除いた
// 値全体を返します。引用符付きローカルパートはそのまま保持します。
func Extract(s string) string {
	var quoted bool
	var angle bool
	var esc bool
	var depth int
	start, end := -1, -1
	var plain strings.Builder

	// 1文字ずつ処理する
	for i, r := range s {
		// 引用符内のエスケープ文字は次の1文字の特殊性を打ち消す
		if esc {
			esc = false
			if depth == 0 {
				plain.WriteRune(r)
			}
			continue
		}
		switch {
		case r == '\\' && quoted:
			esc = true
		case r == '"' && depth == 0:
			quoted = !quoted
		case r == '(' && !quoted:
			// コメントの入れ子に対応する
			depth++
			continue
		case r == ')' && !quoted && depth > 0:
			depth--
			continue
		case r == '<' && !quoted && depth == 0 && !angle && end < 0:
			angle = true
			start = i
			continue
		case r == '>' && !quoted && depth == 0 && angle:
			angle = false
			end = i
			continue
		}
		if depth == 0 {
			plain.WriteRune(r)
		}
	}

	var address string
	if end >= 0 && start < end {
		address = s[start+1 : end]
	} else {
		address = plain.String()
	}

	// 前後の空白を削除
	return strings.TrimSpace(address)
}

// Parse はヘッダ値から最初のaddr-specを取り出し、ローカルパートと
// ドメインに分割する関数です。引用符付きローカルパートに@が含まれる
// 場合があるため、最後の@で分割します。
func Parse(s string) (string, string, error) {
	addr := Extract(s)
	if addr == "" {
		return "", "", ErrInvalidEmailFormat
	}

	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return "", "", ErrInvalidEmailFormat
	}

	return addr[:at], addr[at+1:], nil
}

// Domain はヘッダ値からドメインのみを取り出す関数です。
func Domain(s string) (string, error) {
	_, domain, err := Parse(s)
	if err != nil {
		return "", err
	}
	return domain, nil
}

// ParseList はTo・Ccのような複数アドレスのヘッダ値をパースする関数です。
// 引用符・コメント・山括弧の中にないカンマで区切り、空の要素は読み飛ばします。
func ParseList(s string) ([]Address, error) {
	var list []Address
	var quoted bool
	var angle bool
	var esc bool
	var depth int
	begin := 0

	flush := func(end int) error {
		seg := strings.TrimSpace(s[begin:end])
		begin = end + 1
		if seg == "" {
			return nil
		}
		local, domain, err := Parse(seg)
		if err != nil {
			return err
		}
		list = append(list, Address{Local: local, Domain: domain})
		return nil
	}

	for i, r := range s {
		if esc {
			esc = false
			continue
		}
		switch {
		case r == '\\' && quoted:
			esc = true
		case r == '"' && depth == 0:
			quoted = !quoted
		case r == '(' && !quoted:
			depth++
		case r == ')' && !quoted && depth > 0:
			depth--
		case r == '<' && !quoted && depth == 0:
			angle = true
		case r == '>' && !quoted && depth == 0:
			angle = false
		case r == ',' && !quoted && depth == 0 && !angle:
			if err := flush(i); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(len(s)); err != nil {
		return nil, err
	}

	return list, nil
}
