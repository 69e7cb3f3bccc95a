package canonical

import (
	"io"
	"strings"
)

const crlf = "\r\n"

// 正規化済みの出力を下流に流すときの1回あたりの上限
const hashBufferSize = 4096

// シンプルとリラックスの2つの正規化アルゴリズムを定義します。
type Canonicalization string

const (
	Simple  Canonicalization = "simple"
	Relaxed Canonicalization = "relaxed"
)

// ヘッダのシンプル正規化を行う関数です。
func SimpleHeader(s string) string {
	return s
}

// unfoldHeader はヘッダ値の折り返しを解除する関数です。
// RFC 5322によると、ヘッダの折り返しはCRLFとそれに続く空白文字(WSP)でのみ構成されます。
func unfoldHeader(s string) string {
	// CRLF+WSPのシーケンスを削除（unfold）
	for {
		original := s
		s = strings.ReplaceAll(s, "\r\n ", " ")
		s = strings.ReplaceAll(s, "\r\n\t", " ")
		// 変更がなければループを抜ける
		if s == original {
			break
		}
	}
	return s
}

// ヘッダのリラックス正規化を行う関数です。
func RelaxedHeader(s string) string {
	k, v, ok := strings.Cut(s, ":")
	if !ok {
		return strings.TrimSpace(strings.ToLower(s)) + ":" + crlf
	}

	k = strings.TrimSpace(strings.ToLower(k))
	// 改行を削除（unfold）
	v = unfoldHeader(v)
	// タブとスペースを単一のスペースに圧縮
	v = strings.Join(strings.FieldsFunc(v, func(r rune) bool {
		return r == ' ' || r == '\t'
	}), " ")
	// 先頭と末尾の空白を削除
	v = strings.TrimSpace(v)
	return k + ":" + v + crlf
}

// ヘッダの正規化を行う関数です。
func Header(s string, canonical Canonicalization) string {
	var result string
	switch canonical {
	case Simple:
		result = SimpleHeader(s)
	case Relaxed:
		result = RelaxedHeader(s)
	default:
		result = SimpleHeader(s)
	}
	return result
}

// simpleBodyCanonicalizer はボディのシンプル正規化をストリーミングで行います。
// 空行は内容が現れるまで保留し、末尾の空行は出力しません(RFC 6376 セクション 3.4.3)。
type simpleBodyCanonicalizer struct {
	w         io.Writer
	out       []byte
	pendingCR bool
	blankline bool
	blanks    int
	wrote     bool
}

func (c *simpleBodyCanonicalizer) Write(b []byte) (int, error) {
	c.out = c.out[:0]
	for _, ch := range b {
		if c.pendingCR {
			c.pendingCR = false
			if ch == '\n' {
				c.endLine()
				continue
			}
			// LFが続かないCRは本文として扱う
			c.content('\r')
		}
		switch ch {
		case '\r':
			// CRLFかどうかは次のバイトで決まるため保留する
			c.pendingCR = true
		case '\n':
			// 裸のLFはCRLFに補正する
			c.endLine()
		default:
			c.content(ch)
		}
		if len(c.out) >= hashBufferSize {
			if err := c.flush(); err != nil {
				return 0, err
			}
		}
	}
	if err := c.flush(); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (c *simpleBodyCanonicalizer) content(ch byte) {
	if c.blankline {
		// 内容が現れたので保留していた空行を出力する
		for ; c.blanks > 0; c.blanks-- {
			c.out = append(c.out, crlf...)
		}
		c.blankline = false
	}
	c.out = append(c.out, ch)
}

func (c *simpleBodyCanonicalizer) endLine() {
	if c.blankline {
		c.blanks++
		return
	}
	c.out = append(c.out, crlf...)
	c.blankline = true
}

func (c *simpleBodyCanonicalizer) flush() error {
	if len(c.out) == 0 {
		return nil
	}
	c.wrote = true
	out := c.out
	for len(out) > hashBufferSize {
		if _, err := c.w.Write(out[:hashBufferSize]); err != nil {
			return err
		}
		out = out[hashBufferSize:]
	}
	if _, err := c.w.Write(out); err != nil {
		return err
	}
	c.out = c.out[:0]
	return nil
}

func (c *simpleBodyCanonicalizer) Close() error {
	c.out = c.out[:0]
	if c.pendingCR {
		c.pendingCR = false
		c.content('\r')
	}
	// 終端のCRLFが無ければ補う
	if !c.blankline {
		c.out = append(c.out, crlf...)
	}
	// 空のボディは単一のCRLFとして正規化する
	if !c.wrote && len(c.out) == 0 {
		c.out = append(c.out, crlf...)
	}
	return c.flush()
}

// ボディをシンプル正規化する関数です。
func SimpleBody(w io.Writer) io.WriteCloser {
	return &simpleBodyCanonicalizer{w: w, blankline: true}
}

// relaxedBodyCanonicalizer はボディのリラックス正規化をストリーミングで行います。
// 行内のWSPの連続は単一のSPに圧縮し、行末のWSPは削除します(RFC 6376 セクション 3.4.4)。
// WSPだけの行は空行として扱います。
type relaxedBodyCanonicalizer struct {
	w         io.Writer
	out       []byte
	pendingCR bool
	inWSP     bool
	blankline bool
	blanks    int
	wrote     bool
}

func (c *relaxedBodyCanonicalizer) Write(b []byte) (int, error) {
	c.out = c.out[:0]
	for _, ch := range b {
		if c.pendingCR {
			c.pendingCR = false
			if ch == '\n' {
				c.endLine()
				continue
			}
			// LFが続かないCRは本文として扱う
			c.content('\r')
		}
		switch ch {
		case '\r':
			// CRLFかどうかは次のバイトで決まるため保留する
			c.pendingCR = true
		case '\n':
			// 裸のLFはCRLFに補正する
			c.endLine()
		case ' ', '\t':
			// WSPは内容が続くまで保留する
			c.inWSP = true
		default:
			c.content(ch)
		}
		if len(c.out) >= hashBufferSize {
			if err := c.flush(); err != nil {
				return 0, err
			}
		}
	}
	if err := c.flush(); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (c *relaxedBodyCanonicalizer) content(ch byte) {
	if c.blankline {
		// 内容が現れたので保留していた空行を出力する
		for ; c.blanks > 0; c.blanks-- {
			c.out = append(c.out, crlf...)
		}
		c.blankline = false
	}
	// WSPの連続を単一のSPに圧縮する
	if c.inWSP {
		c.out = append(c.out, ' ')
		c.inWSP = false
	}
	c.out = append(c.out, ch)
}

func (c *relaxedBodyCanonicalizer) endLine() {
	// 行末のWSPは削除する
	c.inWSP = false
	if c.blankline {
		c.blanks++
		return
	}
	c.out = append(c.out, crlf...)
	c.blankline = true
}

func (c *relaxedBodyCanonicalizer) flush() error {
	if len(c.out) == 0 {
		return nil
	}
	c.wrote = true
	out := c.out
	for len(out) > hashBufferSize {
		if _, err := c.w.Write(out[:hashBufferSize]); err != nil {
			return err
		}
		out = out[hashBufferSize:]
	}
	if _, err := c.w.Write(out); err != nil {
		return err
	}
	c.out = c.out[:0]
	return nil
}

func (c *relaxedBodyCanonicalizer) Close() error {
	c.out = c.out[:0]
	if c.pendingCR {
		c.pendingCR = false
		// WSPだけの行の末尾の孤立したCRは空行として扱う
		if !c.blankline {
			c.content('\r')
		}
	}
	// 終端のCRLFが無ければ補う
	if !c.blankline {
		c.out = append(c.out, crlf...)
	}
	// 空のボディは単一のCRLFとして正規化する
	if !c.wrote && len(c.out) == 0 {
		c.out = append(c.out, crlf...)
	}
	return c.flush()
}

// ボディをリラックス正規化する関数です。
func RelaxedBody(w io.Writer) io.WriteCloser {
	return &relaxedBodyCanonicalizer{w: w, blankline: true}
}

// ボディの正規化を行う関数です。
func Body(w io.Writer, canonical Canonicalization) io.WriteCloser {
	switch canonical {
	case Simple:
		return SimpleBody(w)
	case Relaxed:
		return RelaxedBody(w)
	default:
		return SimpleBody(w)
	}
}
