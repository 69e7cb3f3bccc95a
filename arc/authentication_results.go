package arc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/masa23/mmarc/authres"
	"github.com/masa23/mmarc/internal/header"
)

// ARC-Authentication-Results の構造体
// AuthResultsにはauthserv-id以降のペイロードをそのまま保持する
type ARCAuthenticationResults struct {
	InstanceNumber int    // i instance number
	AuthResults    string // authserv-id以降
	raw            string
}

// Raw は取り込んだ生のヘッダフィールドを返す。
func (aar *ARCAuthenticationResults) Raw() string {
	if aar.raw == "" {
		return aar.String()
	}
	return aar.raw
}

// ARC-Authentication-Results の文字列化
// ヘッダ名は含まない
func (aar ARCAuthenticationResults) String() string {
	return fmt.Sprintf("i=%d; %s", aar.InstanceNumber, aar.AuthResults)
}

// Results は保持しているペイロードをRFC 8601として解析して返す。
func (aar *ARCAuthenticationResults) Results() (*authres.AuthResults, error) {
	results := &authres.AuthResults{}
	if err := results.Parse(aar.AuthResults, ""); err != nil {
		return nil, err
	}
	return results, nil
}

// ARC-Authentication-Results のパース
func ParseARCAuthenticationResults(s string) (*ARCAuthenticationResults, error) {
	result := &ARCAuthenticationResults{}
	result.raw = s

	k, v := header.ParseHeaderField(s)
	if !strings.EqualFold(k, "arc-authentication-results") {
		return nil, fmt.Errorf("invalid header field")
	}

	// 先頭のi=タグだけを取り出し、残りは不透明なペイロードとして保持する
	first, rest, found := strings.Cut(v, ";")
	if !found {
		return nil, fmt.Errorf("missing instance number")
	}
	name, value, found := strings.Cut(strings.TrimSpace(first), "=")
	if !found || strings.ToLower(strings.TrimSpace(name)) != "i" {
		return nil, fmt.Errorf("missing instance number")
	}
	instanceNumber, err := strconv.Atoi(header.StripWhiteSpace(value))
	if err != nil {
		return nil, fmt.Errorf("invalid instance number: %v", err)
	}
	result.InstanceNumber = instanceNumber
	result.AuthResults = strings.TrimSpace(rest)

	return result, nil
}

// splitAuthResults はペイロードを引用符とコメントの外側の";"で分割する
// 折り返し用のタグ単位に切るだけで中身の構文には立ち入らない
func splitAuthResults(s string) []string {
	var (
		parts   []string
		start   int
		quoted  bool
		escaped bool
		depth   int
	)
	for i := 0; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\' && quoted:
			escaped = true
		case s[i] == '"' && depth == 0:
			quoted = !quoted
		case s[i] == '(' && !quoted:
			depth++
		case s[i] == ')' && !quoted && depth > 0:
			depth--
		case s[i] == ';' && !quoted && depth == 0:
			if part := strings.TrimSpace(s[start:i]); part != "" {
				parts = append(parts, part)
			}
			start = i + 1
		}
	}
	if part := strings.TrimSpace(s[start:]); part != "" {
		parts = append(parts, part)
	}
	return parts
}
