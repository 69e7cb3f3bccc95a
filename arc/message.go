package arc

import (
	"context"
	"crypto"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/masa23/mmarc/authres"
	"github.com/masa23/mmarc/domainkey"
	"github.com/masa23/mmarc/internal/bodyhash"
	"github.com/masa23/mmarc/internal/canonical"
	"github.com/masa23/mmarc/internal/header"
)

// HeaderField はSealが組み立てたヘッダフィールド1つ分。
// Rawはヘッダ名と終端のCRLFを含む。
type HeaderField struct {
	Name string
	Raw  string
}

// 取り込みの進行状態
type messageState int

const (
	stateHeaders messageState = iota
	stateBody
	stateDone
)

type headerField struct {
	name string
	raw  string
}

// bodyCanonKey は(正規化, ハッシュ, 長さ制限)の組ごとに
// ボディの正規化を共有するためのキー
type bodyCanonKey struct {
	canon canonical.Canonicalization
	hash  crypto.Hash
	limit int64
}

type bodyCanon struct {
	key bodyCanonKey
	bh  *bodyhash.BodyHash
	sum string // EOM後のボディハッシュ
}

// Message は1通のメッセージに対するARC処理のハンドル。
// HeaderField → EOH → Body → EOM → Seal の順に単一ゴルーチンから呼び出す。
type Message struct {
	cfg      *Config
	resolver domainkey.TXTResolver
	state    messageState

	headers []headerField

	sets          []*Set
	maxSeen       int
	chain         ChainStatus
	oldestPass    int
	structuralErr *StatusError

	canons    []*bodyCanon
	signCanon *bodyCanon

	keyLookups    int
	authenticKeys int
}

// New は設定からMessageを作る。
func New(cfg *Config) (*Message, error) {
	if cfg == nil {
		return nil, statusErrorf(StatusInvalid, "config is nil")
	}
	if cfg.Mode == 0 || cfg.Mode&^(ModeSign|ModeVerify) != 0 {
		return nil, statusErrorf(StatusInvalid, "invalid mode")
	}
	switch cfg.headerCanon() {
	case CanonicalizationSimple, CanonicalizationRelaxed:
	default:
		return nil, statusErrorf(StatusInvalid, "invalid header canonicalization: %s", cfg.HeaderCanonicalization)
	}
	switch cfg.bodyCanon() {
	case CanonicalizationSimple, CanonicalizationRelaxed:
	default:
		return nil, statusErrorf(StatusInvalid, "invalid body canonicalization: %s", cfg.BodyCanonicalization)
	}
	if !isSupportedAlgorithm(cfg.algorithm()) {
		return nil, statusErrorf(StatusInvalid, "invalid algorithm: %s", cfg.Algorithm)
	}

	m := &Message{
		cfg:        cfg,
		chain:      ChainUnknown,
		oldestPass: -1,
	}
	switch {
	case cfg.TestKeyFile != "":
		source, err := domainkey.NewFileSource(cfg.TestKeyFile)
		if err != nil {
			return nil, statusErrorf(StatusNoResource, "failed to load test key file: %v", err)
		}
		m.resolver = source
	case cfg.Resolver != nil:
		m.resolver = cfg.Resolver
	default:
		m.resolver = domainkey.DefaultResolver
	}
	return m, nil
}

// HeaderField はヘッダフィールドを1つ取り込む。折り返しを含む
// 完全なフィールドを渡すこと。裸のLFはCRLFに補正する。
func (m *Message) HeaderField(raw []byte) error {
	if m.state != stateHeaders {
		return statusErrorf(StatusInvalid, "header field after end of header")
	}
	s := fixCRLF(string(raw))
	name, _, found := strings.Cut(s, ":")
	if !found {
		return statusErrorf(StatusSyntax, "header field without colon")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return statusErrorf(StatusSyntax, "header field without name")
	}
	// フィールド名にセミコロンを含むヘッダは紛らわしいので黙って捨てる
	if strings.Contains(name, ";") {
		return nil
	}
	if !strings.HasSuffix(s, "\r\n") {
		s += "\r\n"
	}
	m.headers = append(m.headers, headerField{name: name, raw: s})
	return nil
}

// fixCRLF は裸のLFをCRLFに補正する。LFを伴わないCRはそのまま残す。
func fixCRLF(s string) string {
	if !strings.Contains(s, "\n") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' && (i == 0 || s[i-1] != '\r') {
			b.WriteByte('\r')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// EOH はヘッダの終わりを通知する。ARCセットを検出して構造を検証し、
// 必要なボディの正規化を準備する。構造が壊れていてもエラーにはせず、
// チェーンをfailにして取り込みを続ける。
func (m *Message) EOH() error {
	if m.state != stateHeaders {
		return statusErrorf(StatusInvalid, "eoh out of order")
	}
	m.state = stateBody

	m.discoverSets()

	// 署名用のボディ正規化を用意する
	if m.cfg.Mode&ModeSign != 0 {
		m.signCanon = m.addBodyCanon(canonical.Canonicalization(m.cfg.bodyCanon()), hashAlgo(m.cfg.algorithm()), -1)
	}
	// 検証用はAMSの(正規化, ハッシュ, l=)の組ごとに共有する
	if m.cfg.Mode&ModeVerify != 0 {
		for _, set := range m.sets {
			ams := set.messageSignature
			if !isSupportedAlgorithm(ams.Algorithm) {
				continue
			}
			set.bodyCanon = m.addBodyCanon(canonical.Canonicalization(ams.canonnAndAlgo.Body), ams.canonnAndAlgo.HashAlgo, ams.BodyLimit)
		}
	}
	return nil
}

// discoverSets はARCヘッダを検出してセットに振り分け、構造を検証する
func (m *Message) discoverSets() {
	var arcHeaders []string
	var sealCount int
	for _, h := range m.headers {
		switch {
		case strings.EqualFold(h.name, "ARC-Seal"):
			sealCount++
			arcHeaders = append(arcHeaders, h.raw)
		case strings.EqualFold(h.name, "ARC-Authentication-Results"),
			strings.EqualFold(h.name, "ARC-Message-Signature"):
			arcHeaders = append(arcHeaders, h.raw)
		}
	}
	if len(arcHeaders) == 0 {
		return
	}

	parsed, err := parseARCSets(arcHeaders)
	if err != nil {
		// 採番できないので既存のシールの数だけは覚えておく
		m.maxSeen = sealCount
		m.structuralFail(statusErrorf(StatusSyntax, "broken arc set: %v", err))
		return
	}
	m.maxSeen = parsed.getMaxInstance()

	// インスタンス番号は1から隙間なく連続していなければならない
	// (RFC 8617 §5.2)
	max := m.maxSeen
	if len(*parsed) != max {
		m.structuralFail(statusErrorf(StatusSyntax, "arc sets are not contiguous"))
		return
	}
	if max > m.cfg.maxSets() {
		m.structuralFail(statusErrorf(StatusNoResource, "too many arc sets: %d", max))
		return
	}

	ordered := make([]*Set, 0, max)
	for i := 1; i <= max; i++ {
		set := parsed.getInstance(i)
		if set.authResults == nil || set.messageSignature == nil || set.seal == nil {
			m.structuralFail(statusErrorf(StatusSyntax, "incomplete arc set %d", i))
			return
		}
		if err := set.messageSignature.validate(); err != nil {
			m.structuralFail(statusErrorf(StatusSyntax, "arc-message-signature %d: %v", i, err))
			return
		}
		if err := set.seal.validate(); err != nil {
			m.structuralFail(statusErrorf(StatusSyntax, "arc-seal %d: %v", i, err))
			return
		}
		ordered = append(ordered, set)
	}
	m.sets = ordered
}

func (m *Message) structuralFail(err *StatusError) {
	m.chain = ChainFail
	m.structuralErr = err
	m.sets = nil
}

// addBodyCanon は同じ(正規化, ハッシュ, 長さ制限)の組を使い回す
func (m *Message) addBodyCanon(canon canonical.Canonicalization, hash crypto.Hash, limit int64) *bodyCanon {
	if limit < 0 {
		limit = -1
	}
	key := bodyCanonKey{canon: canon, hash: hash, limit: limit}
	for _, c := range m.canons {
		if c.key == key {
			return c
		}
	}
	c := &bodyCanon{key: key, bh: bodyhash.NewBodyHash(canon, hash, limit)}
	m.canons = append(m.canons, c)
	return c
}

// Body はボディの断片を取り込む。断片の切れ目は行の切れ目と
// 一致していなくてもよい。
func (m *Message) Body(chunk []byte) error {
	switch m.state {
	case stateHeaders:
		return statusErrorf(StatusInvalid, "body before end of header")
	case stateDone:
		return statusErrorf(StatusInvalid, "body after end of message")
	}
	for _, c := range m.canons {
		if _, err := c.bh.Write(chunk); err != nil {
			return statusErrorf(StatusInternal, "failed to canonicalize body: %v", err)
		}
	}
	return nil
}

// MinBody はボディの正規化がまだ必要としている正規化後のバイト数の
// 最大値を返す。l=のない署名が1つでもあれば^uint64(0)、全て
// 満たされていれば0。ストリーミングの打ち切り判断に使う。
func (m *Message) MinBody() uint64 {
	var need uint64
	for _, c := range m.canons {
		remaining := c.bh.Remaining()
		if remaining < 0 {
			return ^uint64(0)
		}
		if uint64(remaining) > need {
			need = uint64(remaining)
		}
	}
	return need
}

// EOM はメッセージの終わりを通知する。検証モードではドメインキーを
// 取得してチェーン全体を評価する。ブロックしうるのはここだけで、
// 鍵の取得はctxで打ち切れる。
func (m *Message) EOM(ctx context.Context) error {
	if m.state != stateBody {
		return statusErrorf(StatusInvalid, "eom out of order")
	}
	m.state = stateDone

	for _, c := range m.canons {
		if err := c.bh.Close(); err != nil {
			return statusErrorf(StatusInternal, "failed to close body canonicalization: %v", err)
		}
		c.sum = c.bh.Get()
	}

	if m.structuralErr != nil {
		trace(ctx, "arc: structural failure: %v", m.structuralErr)
		return nil
	}
	if len(m.sets) == 0 {
		m.chain = ChainNone
		trace(ctx, "arc: no sets found")
		return nil
	}
	if m.cfg.Mode&ModeVerify == 0 {
		trace(ctx, "arc: sign-only mode, %d sets not evaluated", len(m.sets))
		return nil
	}

	m.verifyChain(ctx)
	return nil
}

// verifyChain はRFC 8617 §5.2の手順でチェーン全体を評価する
func (m *Message) verifyChain(ctx context.Context) {
	clean := true
	sealsOK := true

	for _, set := range m.sets {
		i := set.instanceNumber
		as := set.seal

		// cv=の整合性 (RFC 8617 §5.1.1)
		// 最初のセットはcv=none、以降はそれまでが健全な場合に限りcv=pass
		cvOK := false
		switch {
		case as.poisoned:
			set.setSigError(statusErrorf(StatusSyntax, "forbidden tag found in arc-seal"))
		case as.ChainValidation == ChainFail:
			set.setSigError(statusErrorf(StatusBadSignature, "seal reports failed chain"))
		case i == 1 && as.ChainValidation != ChainNone,
			i > 1 && as.ChainValidation != ChainPass:
			set.setSigError(statusErrorf(StatusBadSignature, "unexpected cv=%s on set %d", as.ChainValidation, i))
		case i > 1 && !clean:
			// 手前のセットが健全でないのにcv=passを主張している
		default:
			cvOK = true
		}

		set.amsResult = m.verifyAMS(ctx, set)
		trace(ctx, "arc: set %d ams d=%s: %s", i, set.messageSignature.Domain, set.amsResult.Message())

		set.asResult = m.verifyAS(ctx, set)
		trace(ctx, "arc: set %d seal d=%s: %s", i, as.Domain, set.asResult.Message())

		// シールの失敗はどのセットでもチェーンを壊す
		if set.asResult.Status() != StatusOK {
			sealsOK = false
			set.setSigError(statusErrorf(set.asResult.Status(), "seal did not verify: %s", set.asResult.Message()))
		}
		clean = clean && cvOK && set.asResult.Status() == StatusOK
	}

	// AMSの再検証が要求されるのは最新のセットだけ (RFC 8617 §5.2)
	top := m.sets[len(m.sets)-1]
	if top.amsResult.Status() != StatusOK {
		top.setSigError(statusErrorf(top.amsResult.Status(), "message signature did not verify: %s", top.amsResult.Message()))
	}

	// oldest-pass: 最新のセットから遡ってAMSが検証できた最古の
	// インスタンス番号 (RFC 8617 §5.2のAR拡張)
	m.oldestPass = -1
	for i := len(m.sets) - 1; i >= 0; i-- {
		if m.sets[i].amsResult.Status() != StatusOK {
			break
		}
		m.oldestPass = m.sets[i].instanceNumber
	}

	if clean && sealsOK && top.amsResult.Status() == StatusOK {
		m.chain = ChainPass
	} else {
		m.chain = ChainFail
	}
	trace(ctx, "arc: chain %s with %d sets, oldest-pass %d", m.chain, len(m.sets), m.oldestPass)
}

// verifyAMS は1セット分のAMSを検証する
func (m *Message) verifyAMS(ctx context.Context, set *Set) *VerifyResult {
	ams := set.messageSignature
	if !isSupportedAlgorithm(ams.Algorithm) {
		return &VerifyResult{
			status: StatusNotImplemented,
			err:    fmt.Errorf("unsupported algorithm: %s", ams.Algorithm),
			msg:    "unsupported algorithm",
		}
	}

	key, lookupFailure := m.lookupKey(ctx, ams.Selector, ams.Domain)
	if lookupFailure != nil {
		return lookupFailure
	}
	if result := m.checkKeySize(key); result != nil {
		return result
	}
	if result := m.checkExpiry(ams, key); result != nil {
		return result
	}

	var bodyHash string
	if set.bodyCanon != nil {
		bodyHash = set.bodyCanon.sum
	}
	return ams.Verify(m.rawHeaders(), bodyHash, key)
}

// verifyAS は1セット分のASを検証する
func (m *Message) verifyAS(ctx context.Context, set *Set) *VerifyResult {
	as := set.seal
	// 鍵を引くまでもなく結果が決まっているものを先に済ませる
	if as.poisoned || as.ChainValidation == ChainFail || !isSupportedAlgorithm(as.Algorithm) {
		return as.Verify(nil, nil)
	}

	key, lookupFailure := m.lookupKey(ctx, as.Selector, as.Domain)
	if lookupFailure != nil {
		return lookupFailure
	}
	if result := m.checkKeySize(key); result != nil {
		return result
	}
	return as.Verify(m.sealedHeaders(set.instanceNumber), key)
}

// sealedHeaders はi番目のシールの署名対象をRFC 8617 §5.1.1の順に
// 組み立てる。i番目のARC-Seal自身は含まない。
func (m *Message) sealedHeaders(instance int) []string {
	var ret []string
	for _, set := range m.sets {
		if set.instanceNumber > instance {
			break
		}
		ret = append(ret, set.authResults.raw, set.messageSignature.raw)
		if set.instanceNumber < instance {
			ret = append(ret, set.seal.raw)
		}
	}
	return ret
}

// lookupKey はドメインキーを取得して失敗をVerifyResultへ写す
func (m *Message) lookupKey(ctx context.Context, selector, domain string) (*domainkey.DomainKey, *VerifyResult) {
	key, err := domainkey.LookupARCDomainKey(ctx, selector, domain, m.resolver)
	if err != nil {
		trace(ctx, "arc: key %s._domainkey.%s: %v", selector, domain, err)
		switch {
		case errors.Is(err, domainkey.ErrNoRecordFound):
			return nil, &VerifyResult{status: StatusNoKey, err: err, msg: "no key"}
		case errors.Is(err, domainkey.ErrKeyRevoked):
			return nil, &VerifyResult{status: StatusRevokedKey, err: err, msg: "key revoked"}
		case errors.Is(err, domainkey.ErrMultipleRecords):
			return nil, &VerifyResult{status: StatusMultiDNSReply, err: err, msg: "multiple key records"}
		case errors.Is(err, domainkey.ErrInvalidVersion):
			return nil, &VerifyResult{status: StatusSyntax, err: err, msg: "invalid key record"}
		default:
			return nil, &VerifyResult{status: StatusKeyFail, err: err, msg: "key lookup failed"}
		}
	}
	m.keyLookups++
	if key.Authentic {
		m.authenticKeys++
	}
	return &key, nil
}

// checkKeySize は設定された最小鍵長を下回る鍵を弾く
// 鍵が解析できない場合はVerify側の報告に任せる
func (m *Message) checkKeySize(key *domainkey.DomainKey) *VerifyResult {
	publicKey, err := key.RSAPublicKey()
	if err != nil {
		return nil
	}
	if bits := publicKey.N.BitLen(); bits < m.cfg.minKeyBits() {
		return &VerifyResult{
			status:    StatusBadSignature,
			err:       fmt.Errorf("key size %d is below minimum %d", bits, m.cfg.minKeyBits()),
			msg:       "key size below minimum",
			domainKey: key,
		}
	}
	return nil
}

// checkExpiry はx=タグとSignatureTTLによる失効を確認する
func (m *Message) checkExpiry(ams *ARCMessageSignature, key *domainkey.DomainKey) *VerifyResult {
	now := m.cfg.now().Unix()
	expired := ams.Expiration != 0 && now > ams.Expiration
	if !expired && m.cfg.SignatureTTL > 0 && ams.Timestamp != 0 {
		expired = now > ams.Timestamp+int64(m.cfg.SignatureTTL/time.Second)
	}
	if expired {
		return &VerifyResult{
			status:    StatusBadSignature,
			err:       fmt.Errorf("signature expired"),
			msg:       "signature expired",
			domainKey: key,
		}
	}
	return nil
}

func (m *Message) rawHeaders() []string {
	ret := make([]string, 0, len(m.headers))
	for _, h := range m.headers {
		ret = append(ret, h.raw)
	}
	return ret
}

// ChainStatus は現在のチェーンの判定を返す。
func (m *Message) ChainStatus() ChainStatus {
	return m.chain
}

// SetCV はチェーンの判定を外から与える。受信時のAuthentication-Results
// のarc=を信頼して検証結果を上書きする場合に使う。
func (m *Message) SetCV(cv ChainStatus) error {
	switch cv {
	case ChainUnknown, ChainNone, ChainFail, ChainPass:
	default:
		return statusErrorf(StatusInvalid, "invalid chain status: %d", cv)
	}
	m.chain = cv
	return nil
}

// ChainCustody は各セットのAMSのd=を古い順に":"で連結して返す。
func (m *Message) ChainCustody() string {
	if len(m.sets) == 0 {
		return ""
	}
	domains := make([]string, 0, len(m.sets))
	for _, set := range m.sets {
		domains = append(domains, set.messageSignature.Domain)
	}
	return strings.Join(domains, ":")
}

// OldestPass は現在のメッセージに対してAMSが再検証できた最古の
// インスタンス番号を返す。なければ-1。
func (m *Message) OldestPass() int {
	return m.oldestPass
}

// Sets は検出したARCセットを古い順に返す。構造が壊れている場合はnil。
func (m *Message) Sets() []*Set {
	return m.sets
}

// KeyDNSSEC は取得した全てのドメインキーがDNSSECで保護されていたか
// を返す。鍵を1つも引いていない場合はfalse。
func (m *Message) KeyDNSSEC() bool {
	return m.keyLookups > 0 && m.keyLookups == m.authenticKeys
}

// nextInstance は新しいセットのインスタンス番号を決める
// 構造が壊れたチェーンでも既存の番号を跨いで採番する
func (m *Message) nextInstance() int {
	if len(m.sets) > 0 {
		return len(m.sets) + 1
	}
	return m.maxSeen + 1
}

// Seal は新しいARCセットを作り、メッセージに前置すべきヘッダを
// ARC-Authentication-Results、ARC-Message-Signature、ARC-Sealの順で返す。
// arTextにはauthserv-idに続くAuthentication-Resultsの内容を渡す。
// 空ならnoneを書く。
func (m *Message) Seal(key crypto.Signer, authServID, selector, domain, arText string) ([]HeaderField, error) {
	if m.state != stateDone {
		return nil, statusErrorf(StatusInvalid, "seal before end of message")
	}
	if m.cfg.Mode&ModeSign == 0 {
		return nil, statusErrorf(StatusInvalid, "message is not in sign mode")
	}
	if key == nil {
		return nil, statusErrorf(StatusInvalid, "key is nil")
	}
	if authServID == "" || selector == "" || domain == "" {
		return nil, statusErrorf(StatusInvalid, "authServID, selector and domain are required")
	}
	if _, ok := key.Public().(*rsa.PublicKey); !ok {
		return nil, statusErrorf(StatusNotImplemented, "unknown key type: %T", key.Public())
	}

	// cv=の決定。検証していないチェーンにはSetCVで判定を与えておくこと
	cv := m.chain
	if cv == ChainUnknown {
		return nil, statusErrorf(StatusInvalid, "chain status is not resolved")
	}

	instance := m.nextInstance()
	if instance > m.cfg.maxSets() {
		return nil, statusErrorf(StatusNoResource, "chain is full: %d sets", instance-1)
	}

	now := m.cfg.now().Unix()

	// ARC-Authentication-Results
	if arText == "" {
		arText = "none"
	}
	aar := &ARCAuthenticationResults{
		InstanceNumber: instance,
		AuthResults:    authServID + "; " + arText,
	}
	tags := append([]string{fmt.Sprintf("i=%d", instance), authServID}, splitAuthResults(arText)...)
	aarText, err := header.FoldTagList("ARC-Authentication-Results", tags)
	if err != nil {
		return nil, statusErrorf(StatusNoResource, "failed to fold arc-authentication-results: %v", err)
	}
	aar.raw = aarText + "\r\n"

	// ARC-Message-Signature
	ams := &ARCMessageSignature{
		InstanceNumber:   instance,
		Algorithm:        m.cfg.algorithm(),
		Canonicalization: string(m.cfg.headerCanon()) + "/" + string(m.cfg.bodyCanon()),
		Domain:           domain,
		Selector:         selector,
		Headers:          m.signHeaderList(),
		BodyHash:         m.signCanon.sum,
		BodyLimit:        -1,
		Timestamp:        now,
	}
	if err := ams.Sign(m.rawHeaders(), key); err != nil {
		return nil, err
	}
	ams.raw = "ARC-Message-Signature: " + ams.String() + "\r\n"

	// ARC-Seal
	seal := &ARCSeal{
		InstanceNumber:  instance,
		Algorithm:       m.cfg.algorithm(),
		ChainValidation: cv,
		Domain:          domain,
		Selector:        selector,
		Timestamp:       now,
	}
	sealInput := make([]string, 0, len(m.sets)*3+3)
	if cv != ChainFail {
		for _, set := range m.sets {
			sealInput = append(sealInput, set.authResults.raw, set.messageSignature.raw, set.seal.raw)
		}
	}
	sealInput = append(sealInput, aar.raw, ams.raw)
	if err := seal.Sign(sealInput, key); err != nil {
		return nil, err
	}
	seal.raw = "ARC-Seal: " + seal.String() + "\r\n"

	return []HeaderField{
		{Name: "ARC-Authentication-Results", Raw: aar.raw},
		{Name: "ARC-Message-Signature", Raw: ams.raw},
		{Name: "ARC-Seal", Raw: seal.raw},
	}, nil
}

// signHeaderList はAMSのh=に載せるヘッダ名のリストを組み立てる。
// SignHeadersが空のときは存在する全ヘッダ(禁止ヘッダを除く)を使い、
// OverSignHeadersの名前は出現数より1つ多く載せる。
func (m *Message) signHeaderList() string {
	var names []string
	if len(m.cfg.SignHeaders) > 0 {
		for _, name := range m.cfg.SignHeaders {
			name = strings.TrimSpace(name)
			if name == "" || forbiddenSignHeaders[strings.ToLower(name)] {
				continue
			}
			names = append(names, name)
		}
	} else {
		for _, h := range m.headers {
			if forbiddenSignHeaders[strings.ToLower(h.name)] {
				continue
			}
			names = append(names, h.name)
		}
	}
	for _, name := range m.cfg.OverSignHeaders {
		name = strings.TrimSpace(name)
		if name == "" || forbiddenSignHeaders[strings.ToLower(name)] {
			continue
		}
		names = append(names, name)
	}
	return strings.Join(names, ":")
}

// AuthResult はAuthentication-Resultsに書くarcメソッドの断片を返す。
// 例: arc=pass header.oldest-pass=1 smtp.remote-ip=203.0.113.1
func (m *Message) AuthResult(remoteIP string) string {
	var b strings.Builder
	b.WriteString("arc=")
	b.WriteString(m.chain.String())
	if m.oldestPass >= 0 {
		fmt.Fprintf(&b, " header.oldest-pass=%d", m.oldestPass)
	}
	if remoteIP != "" {
		b.WriteString(" smtp.remote-ip=")
		b.WriteString(authres.QuoteValue(remoteIP))
	}
	if m.cfg.Mode&ModeVerify != 0 && len(m.sets) > 0 {
		b.WriteString(` arc.chain="`)
		b.WriteString(m.ChainCustody())
		b.WriteString(`"`)
	}
	return b.String()
}
