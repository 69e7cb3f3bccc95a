package domainkey

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// TXTResolver is an interface for DNS TXT record lookups.
// authentic reports whether the reply carried a validated DNSSEC
// AD bit; resolvers that cannot know return false.
type TXTResolver interface {
	// LookupTXT performs a DNS TXT record lookup for the given name.
	LookupTXT(ctx context.Context, name string) (records []string, authentic bool, err error)
}

// netTXTResolver adapts a *net.Resolver to TXTResolver.
// The stdlib resolver has no access to the AD bit, so authentic is always false.
type netTXTResolver struct {
	resolver *net.Resolver
}

// NewNetTXTResolver creates a TXTResolver backed by the given *net.Resolver.
// A nil argument selects net.DefaultResolver.
func NewNetTXTResolver(r *net.Resolver) TXTResolver {
	if r == nil {
		r = net.DefaultResolver
	}
	return &netTXTResolver{resolver: r}
}

// LookupTXT performs a DNS TXT record lookup using the wrapped resolver.
func (r *netTXTResolver) LookupTXT(ctx context.Context, name string) ([]string, bool, error) {
	records, err := r.resolver.LookupTXT(ctx, name)
	return records, false, err
}

// DefaultResolver はシステムリゾルバを利用するTXTResolver。
// DNSSECの検証結果は得られないためauthenticは常にfalseになる。
var DefaultResolver = NewNetTXTResolver(nil)

var (
	ErrNoRecordFound   = errors.New("no record found")
	ErrDNSLookupFailed = errors.New("dns lookup failed")
	ErrMultipleRecords = errors.New("multiple txt records found")
	ErrTruncatedReply  = errors.New("truncated dns reply")
	ErrKeyRevoked      = errors.New("key revoked")
	ErrInvalidKeyType  = errors.New("invalid key type")
	ErrInvalidVersion  = errors.New("invalid version")
)

type HashAlgo string

const (
	HashAlgoSHA1   HashAlgo = "sha1"
	HashAlgoSHA256 HashAlgo = "sha256"
)

type KeyType string

const (
	KeyTypeRSA KeyType = "rsa"
)

type ServiceType string

const (
	ServiceTypeEmail ServiceType = "email"
	ServiceTypeAll   ServiceType = "*"
)

type SelectorFlags string

const (
	SelectorFlagsTest         SelectorFlags = "y"
	SelectorFlagsStrictDomain SelectorFlags = "s" // identifier is strict domain
)

type DomainKey struct {
	HashAlgo      []HashAlgo      // h hash algorithm separated by colons
	KeyType       KeyType         // k default:rsa
	Notes         string          // n notes
	PublicKey     string          // p public key base64 encoded
	ServiceType   []ServiceType   // s service type separated by colons
	SelectorFlags []SelectorFlags // t flags separated by colons
	Version       string          // v version default:DKIM1
	Authentic     bool            // DNSSEC ADビット(lookup時に設定される)
	raw           string          // raw record
}

// テストフラグが立っているか
func (d *DomainKey) IsTestFlag() bool {
	for _, f := range d.SelectorFlags {
		if f == SelectorFlagsTest {
			return true
		}
	}
	return false
}

// サービスタイプが指定されたものか
func (d *DomainKey) IsService(service ServiceType) bool {
	if service == ServiceTypeAll {
		return true
	}
	// service typeが指定されていない場合は全てのサービスに対応
	if len(d.ServiceType) == 0 {
		return true
	}
	for _, s := range d.ServiceType {
		if s == service || s == ServiceTypeAll {
			return true
		}
	}
	return false
}

// AllowsHash はh=タグが指定のハッシュアルゴリズムを許容するか判定する
// h=タグがない場合は全てのアルゴリズムを許容する (RFC 6376 3.6.1)
func (d *DomainKey) AllowsHash(algo HashAlgo) bool {
	if len(d.HashAlgo) == 0 {
		return true
	}
	for _, h := range d.HashAlgo {
		if h == algo {
			return true
		}
	}
	return false
}

// isKeyRevoked checks if a domain key has been revoked.
// A key is considered revoked if the record contains "p=" but the parsed PublicKey is empty.
func isKeyRevoked(record string, domainKey DomainKey) error {
	if strings.Contains(record, "p=") && domainKey.PublicKey == "" {
		return ErrKeyRevoked
	}
	return nil
}

// LookupARCDomainKey はARCのドメインキーを検索する
// versionが存在してDKIM1以外の場合はエラーを返す
// resolverがnilの場合はDefaultResolverを使用する
func LookupARCDomainKey(ctx context.Context, selector, domain string, resolver TXTResolver) (DomainKey, error) {
	d, err := lookupDomainKey(ctx, selector, domain, resolver)
	if err != nil {
		return DomainKey{}, err
	}
	if d.Version != "" && d.Version != "DKIM1" {
		return DomainKey{}, ErrInvalidVersion
	}
	return d, nil
}

// lookupDomainKey
func lookupDomainKey(ctx context.Context, selector, domain string, resolver TXTResolver) (DomainKey, error) {
	query, err := QueryName(selector, domain)
	if err != nil {
		return DomainKey{}, err
	}
	if resolver == nil {
		resolver = DefaultResolver
	}
	records, authentic, err := resolver.LookupTXT(ctx, query)
	switch {
	case err == nil:
	case isNotFound(err):
		return DomainKey{}, ErrNoRecordFound
	case errors.Is(err, ErrNoRecordFound), errors.Is(err, ErrTruncatedReply):
		return DomainKey{}, err
	default:
		return DomainKey{}, fmt.Errorf("%w: %v", ErrDNSLookupFailed, err)
	}
	// 同名のTXTレコードが複数存在する場合は構成誤りとして拒否する
	if len(records) > 1 {
		return DomainKey{}, ErrMultipleRecords
	}
	if len(records) == 0 {
		return DomainKey{}, ErrNoRecordFound
	}
	domainKey, err := ParseDomainKeyRecode(records[0])
	if err != nil {
		return DomainKey{}, err
	}
	// p=が空の場合はキーが撤回されたとみなす
	if err := isKeyRevoked(records[0], domainKey); err != nil {
		return DomainKey{}, err
	}
	if domainKey.PublicKey == "" {
		return DomainKey{}, ErrNoRecordFound
	}
	domainKey.Authentic = authentic
	return domainKey, nil
}

// isNotFound reports whether err represents an NXDOMAIN-style answer
// from either the stdlib resolver or ExtResolver.
func isNotFound(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsNotFound
	}
	var rcodeErr RCodeError
	if errors.As(err, &rcodeErr) {
		return rcodeErr.NXDomain()
	}
	return false
}

// QueryName はセレクタとドメインからドメインキーの問い合わせ名を組み立てる
// 非ASCIIのラベルはAラベルへIDNAエンコードする (RFC 8616)
func QueryName(selector, domain string) (string, error) {
	sel, err := toASCII(selector)
	if err != nil {
		return "", fmt.Errorf("failed to encode selector: %w", err)
	}
	dom, err := toASCII(domain)
	if err != nil {
		return "", fmt.Errorf("failed to encode domain: %w", err)
	}
	return sel + "._domainkey." + dom, nil
}

func toASCII(name string) (string, error) {
	ascii := true
	for i := 0; i < len(name); i++ {
		if name[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return name, nil
	}
	return idna.Lookup.ToASCII(name)
}

// ドメインキーレコードの解析
// 未知のk=やh=、s=の値もそのまま保持する
// 利用可否の判定は参照側で行う (RFC 6376 3.6.1)
func ParseDomainKeyRecode(r string) (DomainKey, error) {
	var key DomainKey
	key.raw = r

	pairs := strings.Split(r, ";")
	for _, pair := range pairs {
		k, v, _ := strings.Cut(pair, "=")
		// 値の前後の空白をトリム
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		switch strings.ToLower(k) {
		case "v":
			key.Version = v
			continue
		case "h":
			algos := strings.Split(v, ":")
			for _, algo := range algos {
				trimmedAlgo := strings.TrimSpace(algo)
				if trimmedAlgo == "" {
					continue
				}
				key.HashAlgo = append(key.HashAlgo, HashAlgo(trimmedAlgo))
			}
		case "k":
			key.KeyType = KeyType(v)
		case "n":
			key.Notes = v
		case "p":
			// 空白類を削除して格納
			key.PublicKey = strings.Map(func(c rune) rune {
				if unicode.IsSpace(c) {
					return -1
				}
				return c
			}, v)
		case "s":
			serviceTypes := strings.Split(v, ":")
			for _, serviceType := range serviceTypes {
				trimmedServiceType := strings.TrimSpace(serviceType)
				if trimmedServiceType == "" {
					continue
				}
				key.ServiceType = append(key.ServiceType, ServiceType(trimmedServiceType))
			}
		case "t":
			// t=タグはコロン区切りの複数フラグを許容する
			flags := strings.Split(v, ":")
			for _, flag := range flags {
				trimmedFlag := strings.TrimSpace(flag)
				switch SelectorFlags(trimmedFlag) {
				case SelectorFlagsTest:
					key.SelectorFlags = append(key.SelectorFlags, SelectorFlagsTest)
				case SelectorFlagsStrictDomain:
					key.SelectorFlags = append(key.SelectorFlags, SelectorFlagsStrictDomain)
				// 未知のフラグは無視する（将来拡張に対応）
				default:
				}
			}
		}
	}

	return key, nil
}
