// Package arc は RFC 8617 の Authenticated Received Chain (ARC) を実装する。
//
// メッセージをヘッダ、ボディの順にストリーミングで取り込み、既存のARC
// チェーンの検証 (EOM) と新しいARCセットの付与 (Seal) を行う。1つの
// Messageは1通のメッセージに対応し、単一ゴルーチンから
// HeaderField → EOH → Body → EOM → Seal の順に呼び出す。
package arc

import (
	"crypto"
	"encoding/base64"
)

// 署名アルゴリズム
// RFC 8617が参照するRFC 6376のrsa-sha1とrsa-sha256のみをサポートする
type SignatureAlgorithm string

const (
	SignatureAlgorithmRSA_SHA1   SignatureAlgorithm = "rsa-sha1"
	SignatureAlgorithmRSA_SHA256 SignatureAlgorithm = "rsa-sha256"
)

// 正規化アルゴリズム
type Canonicalization string

const (
	CanonicalizationSimple  Canonicalization = "simple"
	CanonicalizationRelaxed Canonicalization = "relaxed"
)

// 正規化とアルゴリズムの組
type CanonicalizationAndAlgorithm struct {
	Header    Canonicalization
	Body      Canonicalization
	Algorithm SignatureAlgorithm
	HashAlgo  crypto.Hash
}

// isSupportedAlgorithm はa=タグの値がサポートされているか判定する
// 未知のアルゴリズムはパースを通し、検証段階でnot-implementedにする
func isSupportedAlgorithm(algo SignatureAlgorithm) bool {
	switch algo {
	case SignatureAlgorithmRSA_SHA1, SignatureAlgorithmRSA_SHA256:
		return true
	}
	return false
}

// hashAlgo は署名アルゴリズムに対応するハッシュアルゴリズムを返す
func hashAlgo(algo SignatureAlgorithm) crypto.Hash {
	switch algo {
	case SignatureAlgorithmRSA_SHA1:
		return crypto.SHA1
	default:
		// デフォルトはSHA256
		return crypto.SHA256
	}
}

// base64Decode は署名や公開鍵のbase64をデコードする
func base64Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// RFC 8617 §4.1.2で署名対象(h=)に含めてはならないヘッダ
var forbiddenSignHeaders = map[string]bool{
	"authentication-results":     true,
	"arc-authentication-results": true,
	"arc-message-signature":      true,
	"arc-seal":                   true,
}
