package header

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/masa23/mmarc/internal/buffer"
	"github.com/masa23/mmarc/internal/canonical"
)

const (
	crlf = "\r\n"

	// 組み立てるヘッダフィールドの桁数と長さの上限
	foldMargin   = 78
	maxHeaderLen = 16384
)

// 折り返し行のインデント
const foldIndent = "        "

// ヘッダをパースする
func ParseHeaderField(s string) (string, string) {
	key, value, _ := strings.Cut(s, ":")
	return strings.TrimSpace(key), strings.TrimSpace(value)
}

// StripWithSpace は文字列から空白を削除する
// '\t', '\n', '\v', '\f', '\r', ' ', U+0085 (NEL), U+00A0 (NBSP).\r \n \t
func StripWhiteSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// WrapSignatureWithBreaks は署名を64文字ごとに改行しスペースを挿入する
func WrapSignatureWithBreaks(s string) string {
	lines := splitStringIntoChunks(s, 64)
	return strings.Join(lines, "\r\n         ")
}

func splitStringIntoChunks(s string, chunkSize int) []string {
	var chunks []string
	for chunkSize < len(s) {
		chunks = append(chunks, s[:chunkSize])
		s = s[chunkSize:]
	}
	chunks = append(chunks, s)
	return chunks
}

// FoldTagList はヘッダ名とtag=valueのリストからヘッダフィールドを組み立てる。
// タグは「; 」で連結し、78桁を超える場合はタグ境界でCRLF+WSPの折り返しを入れる。
// タグ内に既に折り返しがある場合はそのまま保持し、以降の桁数を数え直す。
func FoldTagList(name string, tags []string) (string, error) {
	buf := buffer.New(256, maxHeaderLen, nil)
	if _, err := buf.WriteString(name); err != nil {
		return "", err
	}
	if err := buf.WriteByte(':'); err != nil {
		return "", err
	}
	col := len(name) + 1

	for i, tag := range tags {
		first := tag
		if idx := strings.Index(first, crlf); idx >= 0 {
			first = first[:idx]
		}

		// タグの先頭行が収まらない場合は折り返す
		if col+1+len(first) > foldMargin {
			if _, err := buf.WriteString(crlf + foldIndent); err != nil {
				return "", err
			}
			col = len(foldIndent)
		} else {
			if err := buf.WriteByte(' '); err != nil {
				return "", err
			}
			col++
		}

		if _, err := buf.WriteString(tag); err != nil {
			return "", err
		}
		if idx := strings.LastIndex(tag, crlf); idx >= 0 {
			col = len(tag) - idx - len(crlf)
		} else {
			col += len(tag)
		}

		if i < len(tags)-1 {
			if err := buf.WriteByte(';'); err != nil {
				return "", err
			}
			col++
		}
	}

	return buf.String(), nil
}

// ヘッダ、秘密鍵、正規化の種類を指定して署名を生成する
//
// RFC 6376 §3.7 (Computing the Message Hashes) requires the *signature header
// field itself* (e.g. DKIM-Signature / ARC-Message-Signature / ARC-Seal) to be
// fed to the header hash **without a trailing CRLF**, while all other signed
// header fields MUST be terminated with a single CRLF.
//
// When you are signing DKIM/ARC, prefer SignerWithOmitLastCRLF(..., true).
func Signer(headers []string, key crypto.Signer, canon canonical.Canonicalization, hashAlgo crypto.Hash) (string, error) {
	return SignerWithOmitLastCRLF(headers, key, canon, hashAlgo, false)
}

// SignerWithOmitLastCRLF is like Signer, but can omit the trailing CRLF from the
// *last* canonicalized header field.
//
// This is required for DKIM/ARC signature computation where the signature
// header field is hashed without its terminating CRLF.
func SignerWithOmitLastCRLF(headers []string, key crypto.Signer, canon canonical.Canonicalization, hashAlgo crypto.Hash, omitLastCRLF bool) (string, error) {
	// keyがnilの場合はエラーを返す
	if key == nil {
		return "", errors.New("private key is nil")
	}

	// key.Public()がnilを返す場合のエラーハンドリングを追加
	publicKey := key.Public()
	if publicKey == nil {
		return "", errors.New("public key is nil")
	}

	var sb strings.Builder
	for _, header := range headers {
		sb.WriteString(canonical.Header(header, canonical.Canonicalization(canon)))
	}
	s := sb.String()
	if omitLastCRLF {
		s = strings.TrimSuffix(s, crlf)
	}

	// 署名するヘッダをハッシュ化
	hashed := hashHeader(s, hashAlgo)

	// RSA以外の鍵はサポートしない
	if _, ok := publicKey.(*rsa.PublicKey); !ok {
		return "", errors.New("unsupported private key type")
	}

	// 秘密鍵を用いてハッシュを署名
	signature, err := key.Sign(rand.Reader, hashed, hashAlgo)
	if err != nil {
		return "", err
	}

	// 署名をbase64エンコード
	b64 := base64.StdEncoding.EncodeToString(signature)
	return b64, nil
}

// 正規化済みのヘッダ列をハッシュ化する
func hashHeader(s string, hashAlgo crypto.Hash) []byte {
	switch hashAlgo {
	case crypto.SHA1:
		sum := sha1.Sum([]byte(s))
		return sum[:]
	default:
		// デフォルトはSHA256
		sum := sha256.Sum256([]byte(s))
		return sum[:]
	}
}

// relaxed/simpleなどの文字列をパースしてcanonicalizationを返す
func ParseHeaderCanonicalization(s string) (header canonical.Canonicalization, body canonical.Canonicalization, err error) {
	if s == "" {
		// 指定がない場合はsimple/simple
		return canonical.Simple, canonical.Simple, nil
	}
	ret := strings.Split(s, "/")
	if len(ret) != 2 {
		// 一つしか指定していない場合はヘッダーに適用
		// bodyはsimple (RFC 6376 §3.5)
		switch canonical.Canonicalization(ret[0]) {
		case canonical.Simple, canonical.Relaxed:
			return canonical.Canonicalization(ret[0]), canonical.Simple, nil
		default:
			return "", "", fmt.Errorf("invalid canonicalization")
		}
	}
	switch canonical.Canonicalization(ret[0]) {
	case canonical.Simple, canonical.Relaxed:
		header = canonical.Canonicalization(ret[0])
	default:
		return "", "", fmt.Errorf("invalid canonicalization")
	}
	switch canonical.Canonicalization(ret[1]) {
	case canonical.Simple, canonical.Relaxed:
		body = canonical.Canonicalization(ret[1])
	default:
		return "", "", fmt.Errorf("invalid canonicalization")
	}

	return
}

// StripBValueForSigning removes the value of the b= tag from a DKIM/ARC style
// signature header while preserving all other formatting including whitespace
// and folding. This is required for signature calculation as per RFC 6376 §3.5
// and §3.7: the bytes fed to the hash must equal the original header minus the
// b= value only.
func StripBValueForSigning(rawHeaderLine string) string {
	// Find the start of the b= tag (case insensitive)
	bTagStart := findBTagStart([]rune(rawHeaderLine))
	if bTagStart == -1 {
		// No b= tag found, return original
		return rawHeaderLine
	}

	// Find the end of the b= tag value
	bTagEnd := findBTagEnd([]rune(rawHeaderLine), bTagStart)
	if bTagEnd == -1 {
		// Malformed b= tag, return original
		return rawHeaderLine
	}

	var result strings.Builder
	result.Grow(len(rawHeaderLine) - (bTagEnd - bTagStart))

	// Add part before b= value, including the b= tag itself
	result.WriteString(rawHeaderLine[:bTagStart])

	// Add part after b= value
	if bTagEnd < len(rawHeaderLine) {
		result.WriteString(rawHeaderLine[bTagEnd:])
	}

	return result.String()
}

// findBTagStart finds the start position of the b= tag value
// Returns the index after "b=" where the value starts, or -1 if not found
func findBTagStart(runes []rune) int {
	for i := 0; i < len(runes)-1; i++ {
		if (runes[i] == 'b' || runes[i] == 'B') && runes[i+1] == '=' {
			// Make sure it's preceded by ; or whitespace (or is at the beginning of the header value)
			if i == 0 || runes[i-1] == ';' || isFWS(runes[i-1]) {
				return i + 2 // Position after "b="
			}
		}
	}
	return -1
}

// findBTagEnd finds the end position of the b= tag value
// Starting from bTagStart (after "b="), find where the value ends
// Returns the index where the value ends (either at semicolon or end of line)
func findBTagEnd(runes []rune, bTagStart int) int {
	i := bTagStart

	// Skip any leading FWS after b=
	for i < len(runes) && isFWS(runes[i]) {
		i++
	}

	// Scan through the value
	// The value consists of base64 characters and FWS
	for i < len(runes) {
		// Handle folded headers (CRLF + WSP)
		if i+2 < len(runes) && runes[i] == '\r' && runes[i+1] == '\n' && isFWS(runes[i+2]) {
			i += 3
			continue
		}

		// Stop at semicolon or end of line
		if runes[i] == ';' || runes[i] == '\r' || runes[i] == '\n' {
			break
		}
		i++
	}

	return i
}

// isFWS checks if a rune is considered Folding White Space (FWS)
// FWS = 1*WSP / obs-FWS (RFC 5322)
func isFWS(r rune) bool {
	return r == ' ' || r == '\t'
}

// ExtractHeadersDKIM extracts headers from the message according to RFC 6376 §5.4.2.
// It processes the h= tag header list from left to right, consuming one header of each
// specified header type from the bottom-most (last occurrence) to top-most direction.
func ExtractHeadersDKIM(headers []string, keys []string) []string {
	var ret []string

	// 同名ヘッダを収集（出現順に格納）
	byName := make(map[string][]string)
	for _, header := range headers {
		k, _, ok := strings.Cut(header, ":")
		if !ok {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(k))
		byName[key] = append(byName[key], header)
	}

	// keysの左から順に処理
	for _, key := range keys {
		key = strings.ToLower(strings.TrimSpace(key))

		// 同名ヘッダが複数存在する場合はメッセージ内の末尾側（bottom-most）から1つずつ取り出して消費
		if headersForKey, exists := byName[key]; exists && len(headersForKey) > 0 {
			// 末尾要素を取り出す
			lastIndex := len(headersForKey) - 1
			ret = append(ret, headersForKey[lastIndex])

			// スライスを縮めて消費
			byName[key] = headersForKey[:lastIndex]
		}
		// 存在しないヘッダ名（null string扱い）は追加しない
	}

	return ret
}
