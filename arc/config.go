package arc

import (
	"strings"
	"time"

	"github.com/masa23/mmarc/domainkey"
)

// Mode は処理モードのビットマスク。署名と検証は併用できる。
type Mode uint

const (
	ModeSign Mode = 1 << iota
	ModeVerify
)

const (
	defaultMinKeyBits = 1024
	defaultMaxSets    = 50
)

// Config はMessageの動作設定。ゼロ値のフィールドにはデフォルトが適用される。
type Config struct {
	// 署名時のヘッダ正規化。未指定はrelaxed (RFC 8617 §4.1.2)
	HeaderCanonicalization Canonicalization
	// 署名時のボディ正規化。未指定はrelaxed
	BodyCanonicalization Canonicalization
	// 署名アルゴリズム。未指定はrsa-sha256
	Algorithm SignatureAlgorithm
	// Modeは必須。ModeSign、ModeVerify、またはその両方
	Mode Mode
	// 検証時に受け入れる最小のRSA鍵長(ビット)。0は1024
	MinKeyBits int
	// t=からの署名の有効期間。0は無期限。x=タグとは独立に適用される
	SignatureTTL time.Duration
	// テスト用の固定時刻。ゼロ値は現在時刻を使う
	FixedTime time.Time
	// 署名対象のヘッダ名。nilは存在する全ヘッダ(禁止ヘッダを除く)
	SignHeaders []string
	// オーバーサインするヘッダ名。出現数より1つ多くh=に載せる
	OverSignHeaders []string
	// DNSの代わりに鍵を読むフラットファイル。テスト用
	TestKeyFile string
	// チェーンの最大セット数。0は50 (RFC 8617 §5.2)
	MaxSets int
	// ドメインキーの取得先。nilはdomainkey.DefaultResolver
	Resolver domainkey.TXTResolver
}

func (c *Config) headerCanon() Canonicalization {
	if c.HeaderCanonicalization == "" {
		return CanonicalizationRelaxed
	}
	return c.HeaderCanonicalization
}

func (c *Config) bodyCanon() Canonicalization {
	if c.BodyCanonicalization == "" {
		return CanonicalizationRelaxed
	}
	return c.BodyCanonicalization
}

func (c *Config) algorithm() SignatureAlgorithm {
	if c.Algorithm == "" {
		return SignatureAlgorithmRSA_SHA256
	}
	return c.Algorithm
}

func (c *Config) minKeyBits() int {
	if c.MinKeyBits <= 0 {
		return defaultMinKeyBits
	}
	return c.MinKeyBits
}

func (c *Config) maxSets() int {
	if c.MaxSets <= 0 {
		return defaultMaxSets
	}
	return c.MaxSets
}

// now は現在時刻を返す。FixedTimeが設定されていればそれを使う
func (c *Config) now() time.Time {
	if !c.FixedTime.IsZero() {
		return c.FixedTime
	}
	return time.Now()
}

// SplitList はカンマ区切りの設定値を分割してトリムする。
// SignHeadersやOverSignHeadersを設定ファイルの文字列から作るときに使う。
func SplitList(s string) []string {
	var ret []string
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		ret = append(ret, v)
	}
	return ret
}
