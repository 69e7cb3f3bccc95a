package arc

import (
	"fmt"
	"strings"

	"github.com/masa23/mmarc/internal/header"
)

// Set は1つのインスタンス番号に属するARCヘッダの組。
// 検証後はAMSResultとASResultに個々の検証結果が入る。
type Set struct {
	instanceNumber   int
	authResults      *ARCAuthenticationResults
	messageSignature *ARCMessageSignature
	seal             *ARCSeal

	amsResult *VerifyResult
	asResult  *VerifyResult
	sigError  *StatusError
	bodyCanon *bodyCanon
}

// Instance はセットのインスタンス番号を返す。
func (s *Set) Instance() int {
	return s.instanceNumber
}

// Domain はAMSのd=を返す。
func (s *Set) Domain() string {
	if s.messageSignature == nil {
		return ""
	}
	return s.messageSignature.Domain
}

// Selector はAMSのs=を返す。
func (s *Set) Selector() string {
	if s.messageSignature == nil {
		return ""
	}
	return s.messageSignature.Selector
}

// AuthenticationResults はセットのARC-Authentication-Resultsを返す。
func (s *Set) AuthenticationResults() *ARCAuthenticationResults {
	return s.authResults
}

// MessageSignature はセットのARC-Message-Signatureを返す。
func (s *Set) MessageSignature() *ARCMessageSignature {
	return s.messageSignature
}

// Seal はセットのARC-Sealを返す。
func (s *Set) Seal() *ARCSeal {
	return s.seal
}

// AMSResult はAMSの検証結果を返す。EOMの前はnil。
func (s *Set) AMSResult() *VerifyResult {
	return s.amsResult
}

// ASResult はASの検証結果を返す。EOMの前はnil。
func (s *Set) ASResult() *VerifyResult {
	return s.asResult
}

// SigError はこのセットで最初に見つかった問題を返す。問題がなければnil。
func (s *Set) SigError() error {
	if s.sigError == nil {
		return nil
	}
	return s.sigError
}

func (s *Set) setSigError(err *StatusError) {
	if s.sigError == nil {
		s.sigError = err
	}
}

// sets はインスタンス番号で引くSetの集まり
type sets []*Set

// getInstance は指定したインスタンス番号のSetを返す
// 見つからない場合は新しく作って追加する
func (s *sets) getInstance(i int) *Set {
	for _, set := range *s {
		if set.instanceNumber == i {
			return set
		}
	}
	set := &Set{instanceNumber: i}
	*s = append(*s, set)
	return set
}

// getMaxInstance は最大のインスタンス番号を返す
func (s *sets) getMaxInstance() int {
	var max int
	for _, set := range *s {
		if set.instanceNumber > max {
			max = set.instanceNumber
		}
	}
	return max
}

// parseARCSets はARCヘッダ群をインスタンス番号ごとのセットに振り分ける
// 同じインスタンスに同じ種類のヘッダが2つあるとエラーを返す
func parseARCSets(headers []string) (*sets, error) {
	var ret sets
	for _, h := range headers {
		k, _ := header.ParseHeaderField(h)
		switch strings.ToLower(k) {
		case "arc-authentication-results":
			aar, err := ParseARCAuthenticationResults(h)
			if err != nil {
				return nil, fmt.Errorf("failed to parse arc-authentication-results: %w", err)
			}
			set := ret.getInstance(aar.InstanceNumber)
			if set.authResults != nil {
				return nil, fmt.Errorf("duplicate arc-authentication-results for instance %d", aar.InstanceNumber)
			}
			set.authResults = aar
		case "arc-message-signature":
			ams, err := ParseARCMessageSignature(h)
			if err != nil {
				return nil, fmt.Errorf("failed to parse arc-message-signature: %w", err)
			}
			set := ret.getInstance(ams.InstanceNumber)
			if set.messageSignature != nil {
				return nil, fmt.Errorf("duplicate arc-message-signature for instance %d", ams.InstanceNumber)
			}
			set.messageSignature = ams
		case "arc-seal":
			as, err := ParseARCSeal(h)
			if err != nil {
				return nil, fmt.Errorf("failed to parse arc-seal: %w", err)
			}
			set := ret.getInstance(as.InstanceNumber)
			if set.seal != nil {
				return nil, fmt.Errorf("duplicate arc-seal for instance %d", as.InstanceNumber)
			}
			set.seal = as
		}
	}
	return &ret, nil
}
