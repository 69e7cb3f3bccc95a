package bodyhash

// bodyhash bh=を計算する

import (
	"crypto"
	_ "crypto/sha1"   // sha1を使う
	_ "crypto/sha256" // sha256を使う
	"encoding/base64"
	"hash"
	"io"

	"github.com/masa23/mmarc/internal/canonical"
)

type BodyHash struct {
	hashAlgo crypto.Hash
	w        io.WriteCloser
	hasher   hash.Hash
	lw       *limitWriter
}

// メール本文の書き込みを行う
// ハッシュ値を計算する
func (b *BodyHash) Write(p []byte) (n int, err error) {
	return b.w.Write(p)
}

// メール本文の書き込みを終了する
func (b *BodyHash) Close() error {
	return b.w.Close()
}

// ハッシュ値を取得する
// 取得前にClose()を呼ぶこと
func (b *BodyHash) Get() string {
	hash := b.hasher.Sum(nil)
	return base64.StdEncoding.EncodeToString(hash)
}

// Remaining はl=の制限を満たすまでに必要な正規化後の本文のバイト数を返す関数です。
// 制限がない場合は-1を返す
func (b *BodyHash) Remaining() int64 {
	if b.lw == nil {
		return -1
	}
	return b.lw.remaining()
}

// Canonicalizationとハッシュアルゴリズムを指定してBodyHasherを生成する
// limitはl=タグの値で、負の場合は無制限、0の場合は本文をハッシュに含めない
func NewBodyHash(canon canonical.Canonicalization, hashAlgo crypto.Hash, limit int64) *BodyHash {
	hasher := hashAlgo.New()
	bh := &BodyHash{
		hashAlgo: hashAlgo,
		hasher:   hasher,
	}

	// limitWriterを介してcanonicalizerに接続する
	// canonicalization -> limitWriter -> hasher
	var writer io.Writer = hasher
	if limit >= 0 {
		bh.lw = newLimitWriter(writer, limit)
		writer = bh.lw
	}

	switch canon {
	case canonical.Simple:
		bh.w = canonical.SimpleBody(writer)
	case canonical.Relaxed:
		bh.w = canonical.RelaxedBody(writer)
	default:
		// 指定が不明の場合はSimpleを使う
		bh.w = canonical.SimpleBody(writer)
	}
	return bh
}
