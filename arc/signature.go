package arc

import (
	"crypto"
	"crypto/rsa"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/masa23/mmarc/domainkey"
	"github.com/masa23/mmarc/internal/canonical"
	"github.com/masa23/mmarc/internal/header"
	"github.com/masa23/mmarc/internal/taglist"
)

// ARC-Message-Signature の構造体
type ARCMessageSignature struct {
	Algorithm        SignatureAlgorithm // a algorithm
	Signature        string             // b signature
	BodyHash         string             // bh body hash
	Canonicalization string             // c canonicalization
	Domain           string             // d domain
	Headers          string             // h headers
	InstanceNumber   int                // i instance number
	BodyLimit        int64              // l body length limit (-1は無制限)
	Selector         string             // s selector
	Timestamp        int64              // t timestamp
	Expiration       int64              // x expiration
	CopiedHeaders    string             // z copied header fields
	raw              string
	canonnAndAlgo    *CanonicalizationAndAlgorithm
}

// Raw は取り込んだ生のヘッダフィールドを返す。
func (ams *ARCMessageSignature) Raw() string {
	if ams.raw == "" {
		return ams.String()
	}
	return ams.raw
}

// ARC-Message-Signature の文字列化
// ヘッダ名は含まない
func (ams ARCMessageSignature) String() string {
	return fmt.Sprintf("i=%d; a=%s; c=%s; d=%s; s=%s;\r\n"+
		"        h=%s;\r\n"+
		"        bh=%s; t=%d;\r\n"+
		"        b=%s",
		ams.InstanceNumber, ams.Algorithm, ams.Canonicalization, ams.Domain, ams.Selector,
		ams.Headers,
		ams.BodyHash, ams.Timestamp,
		header.WrapSignatureWithBreaks(ams.Signature),
	)
}

// ARC-Message-Signature のパース
func ParseARCMessageSignature(s string) (*ARCMessageSignature, error) {
	result := &ARCMessageSignature{
		BodyLimit: -1,
	}
	result.raw = s

	k, v := header.ParseHeaderField(s)
	if !strings.EqualFold(k, "arc-message-signature") {
		return nil, fmt.Errorf("invalid header field")
	}

	tags, err := taglist.Parse(v)
	if err != nil {
		return nil, err
	}
	// RFC 6376 §3.2: タグの重複は署名全体の破損として扱う
	if tags.Duplicate() {
		return nil, fmt.Errorf("duplicate tag")
	}

	for _, tag := range tags.Tags() {
		value := header.StripWhiteSpace(tag.Value)
		switch tag.Name {
		case "i":
			instanceNumber, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid instance number: %v", err)
			}
			result.InstanceNumber = instanceNumber
		case "a":
			// 未知のアルゴリズムはパースを通し、検証段階でnot-implementedにする
			result.Algorithm = SignatureAlgorithm(value)
		case "b":
			result.Signature = value
		case "bh":
			result.BodyHash = value
		case "c":
			result.Canonicalization = value
		case "d":
			result.Domain = value
		case "h":
			result.Headers = value
		case "l":
			limit, err := strconv.ParseInt(value, 10, 64)
			if err != nil || limit < 0 {
				return nil, fmt.Errorf("invalid body limit")
			}
			result.BodyLimit = limit
		case "s":
			result.Selector = value
		case "t":
			timestamp, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid timestamp: %v", err)
			}
			result.Timestamp = timestamp
		case "x":
			expiration, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid expiration: %v", err)
			}
			result.Expiration = expiration
		case "z":
			result.CopiedHeaders = tag.Value
		default:
			// 未知のタグは無視する (RFC 6376 §3.2)
		}
	}

	// RFC 6376 §3.5: x=はt=より後でなければならない
	if result.Expiration != 0 && result.Expiration <= result.Timestamp {
		return nil, fmt.Errorf("expiration is not after timestamp")
	}

	// c=未指定はrelaxed/relaxed (RFC 8617 §4.1.2)
	if result.Canonicalization == "" {
		result.Canonicalization = "relaxed/relaxed"
	}
	canHeader, canBody, err := header.ParseHeaderCanonicalization(result.Canonicalization)
	if err != nil {
		return nil, err
	}
	result.canonnAndAlgo = &CanonicalizationAndAlgorithm{
		Header:    Canonicalization(canHeader),
		Body:      Canonicalization(canBody),
		Algorithm: result.Algorithm,
		HashAlgo:  hashAlgo(result.Algorithm),
	}

	return result, nil
}

// validate は必須タグが揃っているか確認する (RFC 8617 §4.1.2)
func (ams *ARCMessageSignature) validate() error {
	switch {
	case ams.InstanceNumber <= 0:
		return fmt.Errorf("missing instance number")
	case ams.Algorithm == "":
		return fmt.Errorf("missing algorithm tag")
	case ams.Signature == "":
		return fmt.Errorf("missing signature tag")
	case ams.BodyHash == "":
		return fmt.Errorf("missing body hash tag")
	case ams.Domain == "":
		return fmt.Errorf("missing domain tag")
	case ams.Headers == "":
		return fmt.Errorf("missing headers tag")
	case ams.Selector == "":
		return fmt.Errorf("missing selector tag")
	}
	return nil
}

// ARC-Message-Signature の署名
// InstanceNumberやh=、bh=などのタグは設定済みであること
func (ams *ARCMessageSignature) Sign(headers []string, key crypto.Signer) error {
	// タイムスタンプが設定されていない場合は現在時刻を設定
	if ams.Timestamp == 0 {
		ams.Timestamp = time.Now().Unix()
	}

	// 鍵のタイプを確認(RSA以外はサポートしない)
	if _, ok := key.Public().(*rsa.PublicKey); !ok {
		return statusErrorf(StatusNotImplemented, "unknown key type: %T", key.Public())
	}
	if ams.Algorithm == "" {
		ams.Algorithm = SignatureAlgorithmRSA_SHA256
	}
	if !isSupportedAlgorithm(ams.Algorithm) {
		return statusErrorf(StatusNotImplemented, "unsupported algorithm: %s", ams.Algorithm)
	}

	canHeader, _, err := header.ParseHeaderCanonicalization(ams.Canonicalization)
	if err != nil {
		return statusErrorf(StatusSyntax, "failed to parse canonicalization: %v", err)
	}

	// h=タグの順にヘッダを選択する(同名ヘッダは下から消費する)
	signingHeaders := header.ExtractHeadersDKIM(headers, strings.Split(ams.Headers, ":"))

	// 自分自身はb=を空にして署名対象の末尾に加える (RFC 6376 §3.7)
	placeholder := *ams
	placeholder.Signature = ""
	signingHeaders = append(signingHeaders, "ARC-Message-Signature: "+placeholder.String()+"\r\n")

	signature, err := header.SignerWithOmitLastCRLF(signingHeaders, key, canHeader, hashAlgo(ams.Algorithm), true)
	if err != nil {
		return statusErrorf(StatusInternal, "failed to sign: %v", err)
	}
	ams.Signature = signature
	return nil
}

// ARC-Message-Signature の検証
// headersにはメッセージの全ヘッダを、bodyHashには対応する正規化で
// 計算したボディハッシュを渡す
func (ams *ARCMessageSignature) Verify(headers []string, bodyHash string, domainKey *domainkey.DomainKey) *VerifyResult {
	if ams == nil || ams.raw == "" {
		return &VerifyResult{
			status: StatusNoSignature,
			err:    fmt.Errorf("arc message signature is not found"),
			msg:    "sign is not found",
		}
	}

	if !isSupportedAlgorithm(ams.Algorithm) {
		return &VerifyResult{
			status:    StatusNotImplemented,
			err:       fmt.Errorf("unsupported algorithm: %s", ams.Algorithm),
			msg:       "unsupported algorithm",
			domainKey: domainKey,
		}
	}

	// h=に含まれてはいけないヘッダをチェック (RFC 8617 §4.1.2)
	for _, headerName := range strings.Split(ams.Headers, ":") {
		headerName = strings.ToLower(strings.TrimSpace(headerName))
		if forbiddenSignHeaders[headerName] {
			return &VerifyResult{
				status:    StatusSyntax,
				err:       fmt.Errorf("forbidden header %s found in h= tag", headerName),
				msg:       fmt.Sprintf("forbidden header %s found in h= tag", headerName),
				domainKey: domainKey,
			}
		}
	}

	if domainKey == nil {
		return &VerifyResult{
			status: StatusNoKey,
			err:    fmt.Errorf("domain key is not found"),
			msg:    "no key",
		}
	}

	// 鍵が許容するハッシュとサービス種別をチェック (RFC 6376 §3.6.1)
	if !domainKey.AllowsHash(keyHashName(ams.Algorithm)) {
		return &VerifyResult{
			status:    StatusCantVerify,
			err:       fmt.Errorf("hash algorithm is not allowed by the key"),
			msg:       "inappropriate hash algorithm",
			domainKey: domainKey,
		}
	}
	if !domainKey.IsService(domainkey.ServiceTypeEmail) {
		return &VerifyResult{
			status:    StatusCantVerify,
			err:       fmt.Errorf("key is not for email service"),
			msg:       "inappropriate service type",
			domainKey: domainKey,
		}
	}

	// ボディハッシュの検証
	if ams.BodyHash != bodyHash {
		return &VerifyResult{
			status:    StatusBadSignature,
			err:       fmt.Errorf("body hash is not match: %s != %s", ams.BodyHash, bodyHash),
			msg:       "body hash is not match",
			domainKey: domainKey,
		}
	}

	// h=タグの順にヘッダを選択する(同名ヘッダは下から消費する)
	h := header.ExtractHeadersDKIM(headers, strings.Split(ams.Headers, ":"))

	// 自分自身はb=の値だけを取り除いて署名対象の末尾に加える
	// 折り返しや空白は受信したバイト列のまま保つ
	h = append(h, header.StripBValueForSigning(ams.raw))

	// ヘッダの正規化
	var s string
	for _, hdr := range h {
		s += canonical.Header(hdr, canonical.Canonicalization(ams.canonnAndAlgo.Header))
	}
	// 署名対象の最後のヘッダは末尾のCRLFを含めない (RFC 6376 §3.7)
	s = strings.TrimSuffix(s, "\r\n")

	// 署名をbase64デコード
	signature, err := base64Decode(ams.Signature)
	if err != nil {
		return &VerifyResult{
			status:    StatusSyntax,
			err:       fmt.Errorf("failed to decode signature: %v", err),
			msg:       "invalid signature",
			domainKey: domainKey,
		}
	}

	// 公開鍵を取り出す
	publicKey, err := domainKey.RSAPublicKey()
	if err != nil {
		return keyErrorResult(err, domainKey)
	}

	// 署名の検証
	hash := ams.canonnAndAlgo.HashAlgo.New()
	hash.Write([]byte(s))
	if err := rsa.VerifyPKCS1v15(publicKey, ams.canonnAndAlgo.HashAlgo, hash.Sum(nil), signature); err != nil {
		return &VerifyResult{
			status:    StatusBadSignature,
			err:       fmt.Errorf("failed to verify arc-message-signature: %v", err),
			msg:       "invalid signature",
			domainKey: domainKey,
		}
	}

	msg := "good signature"
	if domainKey.IsTestFlag() {
		msg += " (key is test flag)"
	}
	return &VerifyResult{
		status:    StatusOK,
		msg:       msg,
		domainKey: domainKey,
	}
}

// keyHashName は署名アルゴリズムに対応する鍵レコードのh=名を返す
func keyHashName(algo SignatureAlgorithm) domainkey.HashAlgo {
	if algo == SignatureAlgorithmRSA_SHA1 {
		return domainkey.HashAlgoSHA1
	}
	return domainkey.HashAlgoSHA256
}

// keyErrorResult は公開鍵の取り出しに失敗した原因をVerifyResultへ写す
func keyErrorResult(err error, domainKey *domainkey.DomainKey) *VerifyResult {
	status := StatusSyntax
	msg := "invalid public key"
	switch {
	case errors.Is(err, domainkey.ErrKeyRevoked):
		status = StatusRevokedKey
		msg = "key revoked"
	case errors.Is(err, domainkey.ErrInvalidKeyType):
		status = StatusNotImplemented
		msg = "unsupported key type"
	}
	return &VerifyResult{
		status:    status,
		err:       err,
		msg:       msg,
		domainKey: domainKey,
	}
}
