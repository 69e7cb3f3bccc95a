package arc

import (
	"errors"
	"fmt"

	"github.com/masa23/mmarc/domainkey"
	"github.com/masa23/mmarc/internal/nametable"
)

// Status は操作や個々の署名検証の結果コード。
type Status int

const (
	StatusOK Status = iota
	StatusBadSignature
	StatusNoSignature
	StatusNoKey
	StatusCantVerify
	StatusSyntax
	StatusNoResource
	StatusInternal
	StatusRevokedKey
	StatusInvalid
	StatusNotImplemented
	StatusKeyFail
	StatusMultiDNSReply
)

var statusNames = nametable.Table{
	{Name: "Success", Code: int(StatusOK)},
	{Name: "Bad signature", Code: int(StatusBadSignature)},
	{Name: "No signature", Code: int(StatusNoSignature)},
	{Name: "No key", Code: int(StatusNoKey)},
	{Name: "Unable to verify", Code: int(StatusCantVerify)},
	{Name: "Syntax error", Code: int(StatusSyntax)},
	{Name: "Resource unavailable", Code: int(StatusNoResource)},
	{Name: "Internal error", Code: int(StatusInternal)},
	{Name: "Revoked key", Code: int(StatusRevokedKey)},
	{Name: "Invalid parameter", Code: int(StatusInvalid)},
	{Name: "Not implemented", Code: int(StatusNotImplemented)},
	{Name: "Key retrieval failed", Code: int(StatusKeyFail)},
	{Name: "Multiple DNS replies", Code: int(StatusMultiDNSReply)},
}

func (s Status) String() string {
	if name := statusNames.Name(int(s)); name != "" {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// StatusError はStatusコードを持つエラー。
// errors.As で取り出せるほか、StatusOf で直接コードを得られる。
type StatusError struct {
	Code Status
	Err  error
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

func statusErrorf(code Status, format string, args ...interface{}) *StatusError {
	return &StatusError{Code: code, Err: fmt.Errorf(format, args...)}
}

// StatusOf はエラーからStatusコードを取り出す。
// nilはStatusOK、StatusErrorを含まないエラーはStatusInternalになる。
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return StatusInternal
}

// ChainStatus はチェーン全体の検証状態。
type ChainStatus int

const (
	ChainUnknown ChainStatus = iota - 1
	ChainNone
	ChainFail
	ChainPass
)

var chainStatusNames = nametable.Table{
	{Name: "none", Code: int(ChainNone)},
	{Name: "fail", Code: int(ChainFail)},
	{Name: "pass", Code: int(ChainPass)},
	{Name: "unknown", Code: int(ChainUnknown)},
}

// String はcv=タグやAuthentication-Resultsに書く小文字の値を返す。
func (c ChainStatus) String() string {
	if name := chainStatusNames.Name(int(c)); name != "" {
		return name
	}
	return "unknown"
}

// parseChainStatus はcv=タグの値をChainStatusに変換する
// RFC 8617 §4.1.3が許すのはnone、fail、passの3値のみ
func parseChainStatus(s string) (ChainStatus, bool) {
	switch ChainStatus(chainStatusNames.Code(s)) {
	case ChainNone:
		return ChainNone, true
	case ChainFail:
		return ChainFail, true
	case ChainPass:
		return ChainPass, true
	}
	return ChainUnknown, false
}

// VerifyResult は個々の署名(AMSまたはAS)の検証結果。
type VerifyResult struct {
	status    Status
	err       error
	msg       string
	domainKey *domainkey.DomainKey
}

// Status は検証結果のコードを返す。
func (r *VerifyResult) Status() Status {
	if r == nil {
		return StatusNoSignature
	}
	return r.status
}

// Error は検証に失敗した原因を返す。
func (r *VerifyResult) Error() error {
	if r == nil {
		return nil
	}
	return r.err
}

// Message は検証結果の短い説明を返す。
func (r *VerifyResult) Message() string {
	if r == nil {
		return ""
	}
	return r.msg
}

// DomainKey は検証に使ったドメインキーを返す。取得前はnil。
func (r *VerifyResult) DomainKey() *domainkey.DomainKey {
	if r == nil {
		return nil
	}
	return r.domainKey
}
