package arc

import (
	"crypto"
	"crypto/rsa"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/masa23/mmarc/domainkey"
	"github.com/masa23/mmarc/internal/canonical"
	"github.com/masa23/mmarc/internal/header"
	"github.com/masa23/mmarc/internal/taglist"
)

// ARC-Seal の構造体
type ARCSeal struct {
	Algorithm       SignatureAlgorithm // a algorithm
	Signature       string             // b signature
	ChainValidation ChainStatus        // cv chain validation result
	Domain          string             // d domain
	InstanceNumber  int                // i instance number
	Selector        string             // s selector
	Timestamp       int64              // t timestamp
	raw             string
	// h=またはbh=タグを見つけた (RFC 8617 §4.1.3、チェーンをfailにする)
	poisoned bool
}

// Raw は取り込んだ生のヘッダフィールドを返す。
func (as *ARCSeal) Raw() string {
	if as.raw == "" {
		return as.String()
	}
	return as.raw
}

// ARC-Seal の文字列化
// ヘッダ名は含まない
func (as ARCSeal) String() string {
	return fmt.Sprintf("i=%d; a=%s; t=%d; cv=%s;\r\n"+
		"        d=%s; s=%s;\r\n"+
		"        b=%s",
		as.InstanceNumber, as.Algorithm, as.Timestamp, as.ChainValidation,
		as.Domain, as.Selector,
		header.WrapSignatureWithBreaks(as.Signature),
	)
}

// StringWithoutSignature はb=の値を空にした文字列を返す。
// 署名対象の組み立てに使う。
func (as ARCSeal) StringWithoutSignature() string {
	return fmt.Sprintf("i=%d; a=%s; t=%d; cv=%s;\r\n"+
		"        d=%s; s=%s;\r\n"+
		"        b=",
		as.InstanceNumber, as.Algorithm, as.Timestamp, as.ChainValidation,
		as.Domain, as.Selector,
	)
}

// ARC-Seal のパース
func ParseARCSeal(s string) (*ARCSeal, error) {
	result := &ARCSeal{
		ChainValidation: ChainUnknown,
	}
	result.raw = s

	k, v := header.ParseHeaderField(s)
	if !strings.EqualFold(k, "arc-seal") {
		return nil, fmt.Errorf("invalid header field")
	}

	tags, err := taglist.Parse(v)
	if err != nil {
		return nil, err
	}
	if tags.Duplicate() {
		return nil, fmt.Errorf("duplicate tag")
	}

	for _, tag := range tags.Tags() {
		value := header.StripWhiteSpace(tag.Value)
		switch tag.Name {
		case "h", "bh":
			// RFC 8617 §4.1.3: ARC-Sealにh=は現れてはならず、
			// 見つけた場合はチェーンをfailにしなければならない
			result.poisoned = true
		case "i":
			instanceNumber, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid instance number: %v", err)
			}
			result.InstanceNumber = instanceNumber
		case "a":
			result.Algorithm = SignatureAlgorithm(value)
		case "b":
			result.Signature = value
		case "cv":
			cv, ok := parseChainStatus(value)
			if !ok {
				return nil, fmt.Errorf("invalid chain validation result: %s", value)
			}
			result.ChainValidation = cv
		case "d":
			result.Domain = value
		case "s":
			result.Selector = value
		case "t":
			timestamp, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid timestamp: %v", err)
			}
			result.Timestamp = timestamp
		default:
			// 未知のタグは無視する
		}
	}

	return result, nil
}

// validate は必須タグが揃っているか確認する (RFC 8617 §4.1.3)
func (as *ARCSeal) validate() error {
	switch {
	case as.InstanceNumber <= 0:
		return fmt.Errorf("missing instance number")
	case as.Algorithm == "":
		return fmt.Errorf("missing algorithm tag")
	case as.Signature == "":
		return fmt.Errorf("missing signature tag")
	case as.ChainValidation == ChainUnknown:
		return fmt.Errorf("missing chain validation tag")
	case as.Domain == "":
		return fmt.Errorf("missing domain tag")
	case as.Selector == "":
		return fmt.Errorf("missing selector tag")
	}
	return nil
}

// ARC-Seal の署名
// headersにはARC-Authentication-Results、ARC-Message-Signature、
// ARC-Sealの生ヘッダを渡す。自分のセットのAARとAMSを含むこと。
func (as *ARCSeal) Sign(headers []string, key crypto.Signer) error {
	// タイムスタンプが設定されていない場合は現在時刻を設定
	if as.Timestamp == 0 {
		as.Timestamp = time.Now().Unix()
	}

	// 鍵のタイプを確認(RSA以外はサポートしない)
	if _, ok := key.Public().(*rsa.PublicKey); !ok {
		return statusErrorf(StatusNotImplemented, "unknown key type: %T", key.Public())
	}
	if as.Algorithm == "" {
		as.Algorithm = SignatureAlgorithmRSA_SHA256
	}
	if !isSupportedAlgorithm(as.Algorithm) {
		return statusErrorf(StatusNotImplemented, "unsupported algorithm: %s", as.Algorithm)
	}
	if as.InstanceNumber <= 0 {
		return statusErrorf(StatusInvalid, "invalid instance number: %d", as.InstanceNumber)
	}

	arcSets, err := parseARCSets(headers)
	if err != nil {
		return statusErrorf(StatusSyntax, "failed to parse arc headers: %v", err)
	}
	if max := arcSets.getMaxInstance(); max != as.InstanceNumber {
		return statusErrorf(StatusInvalid, "instance number %d is out of sequence with %d", as.InstanceNumber, max)
	}

	// 署名対象のヘッダを組み立てる (RFC 8617 §5.1.1)
	// i=Nのシールはi=1からN-1のAAR、AMS、ASとi=NのAAR、AMSを
	// インスタンス番号の順に署名する
	var sortedHeaders []string
	if as.ChainValidation != ChainFail {
		for i := 1; i < as.InstanceNumber; i++ {
			set := arcSets.getInstance(i)
			if set.authResults == nil || set.messageSignature == nil || set.seal == nil {
				return statusErrorf(StatusInvalid, "incomplete arc set %d", i)
			}
			sortedHeaders = append(sortedHeaders, set.authResults.raw, set.messageSignature.raw, set.seal.raw)
		}
	}
	// RFC 8617 §5.1.2: 失敗したチェーンに封をする場合は
	// 自分のセットだけを署名対象にする
	current := arcSets.getInstance(as.InstanceNumber)
	if current.authResults == nil || current.messageSignature == nil {
		return statusErrorf(StatusInvalid, "incomplete arc set %d", as.InstanceNumber)
	}
	sortedHeaders = append(sortedHeaders, current.authResults.raw, current.messageSignature.raw)

	// 自分自身はb=を空にして署名対象の末尾に加える
	sortedHeaders = append(sortedHeaders, "ARC-Seal: "+as.StringWithoutSignature()+"\r\n")

	// ARC-Sealの正規化は常にrelaxed、署名対象の最後のヘッダは
	// 末尾のCRLFを含めない (RFC 8617 §4.1.3、RFC 6376 §3.7)
	signature, err := header.SignerWithOmitLastCRLF(sortedHeaders, key, canonical.Relaxed, hashAlgo(as.Algorithm), true)
	if err != nil {
		return statusErrorf(StatusInternal, "failed to sign: %v", err)
	}
	as.Signature = signature
	return nil
}

// ARC-Seal の検証
// headersには署名対象のARCヘッダをRFC 8617 §5.1.1の順に並べて渡す。
// 自分自身のARC-Sealは含めないこと。
func (as *ARCSeal) Verify(headers []string, domainKey *domainkey.DomainKey) *VerifyResult {
	if as == nil || as.raw == "" {
		return &VerifyResult{
			status: StatusNoSignature,
			err:    fmt.Errorf("arc seal is not found"),
			msg:    "seal is not found",
		}
	}

	// RFC 8617 §4.1.3: h=やbh=を含むシールはチェーンをfailにする
	if as.poisoned {
		return &VerifyResult{
			status:    StatusSyntax,
			err:       fmt.Errorf("forbidden tag found in arc-seal"),
			msg:       "forbidden tag found in arc-seal",
			domainKey: domainKey,
		}
	}

	// cv=failのシールは検証するまでもなく失敗
	if as.ChainValidation == ChainFail {
		return &VerifyResult{
			status:    StatusBadSignature,
			err:       fmt.Errorf("chain validation result is fail"),
			msg:       "chain validation result is fail",
			domainKey: domainKey,
		}
	}

	if !isSupportedAlgorithm(as.Algorithm) {
		return &VerifyResult{
			status:    StatusNotImplemented,
			err:       fmt.Errorf("unsupported algorithm: %s", as.Algorithm),
			msg:       "unsupported algorithm",
			domainKey: domainKey,
		}
	}

	if domainKey == nil {
		return &VerifyResult{
			status: StatusNoKey,
			err:    fmt.Errorf("domain key is not found"),
			msg:    "no key",
		}
	}
	if !domainKey.AllowsHash(keyHashName(as.Algorithm)) {
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

	// 自分自身はb=の値だけを取り除いて署名対象の末尾に加える
	// 折り返しや空白は受信したバイト列のまま保つ
	h := make([]string, 0, len(headers)+1)
	h = append(h, headers...)
	h = append(h, header.StripBValueForSigning(as.raw))

	// ARC-Sealの正規化は常にrelaxed
	var s string
	for _, hdr := range h {
		s += canonical.Header(hdr, canonical.Relaxed)
	}
	// 署名対象の最後のヘッダは末尾のCRLFを含めない (RFC 6376 §3.7)
	s = strings.TrimSuffix(s, "\r\n")

	// 署名をbase64デコード
	signature, err := base64Decode(as.Signature)
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
	hashAlgorithm := hashAlgo(as.Algorithm)
	hash := hashAlgorithm.New()
	hash.Write([]byte(s))
	if err := rsa.VerifyPKCS1v15(publicKey, hashAlgorithm, hash.Sum(nil), signature); err != nil {
		return &VerifyResult{
			status:    StatusBadSignature,
			err:       fmt.Errorf("failed to verify arc-seal: %v", err),
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
