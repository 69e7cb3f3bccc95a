// Package authres parses and formats Authentication-Results header
// fields as described in RFC 8601.
package authres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/masa23/mmarc/internal/nametable"
)

// Field and token limits. Fields beyond these are treated as malformed
// rather than truncated silently.
const (
	maxFieldLen = 4096
	maxTokens   = 1024
	maxResults  = 16
	maxProps    = 16
	maxValueLen = 256
	maxHostLen  = 256
)

const (
	delimTokens = ";=."
	joinTokens  = "=."
)

var (
	// ErrMalformed is returned for fields that do not parse.
	ErrMalformed = errors.New("malformed authentication-results field")
	// ErrAuthServMismatch is returned when a field belongs to a
	// different authserv-id than the one asked for.
	ErrAuthServMismatch = errors.New("authserv-id mismatch")
)

// Method identifies an authentication method (RFC 8601 section 2.7).
type Method int

const (
	MethodUnknown Method = iota
	MethodARC
	MethodAuth
	MethodDKIM
	MethodDKIMADSP
	MethodDKIMATPS
	MethodDMARC
	MethodDNSWL
	MethodDomainKeys
	MethodIPRev
	MethodRRVS
	MethodSenderID
	MethodSMIME
	MethodSPF
	MethodVBR
)

// Result is the outcome reported for one method.
type Result int

const (
	ResultUndefined Result = iota
	ResultDiscard
	ResultFail
	ResultNeutral
	ResultNone
	ResultNXDomain
	ResultPass
	ResultPermError
	ResultPolicy
	ResultSigned
	ResultSoftFail
	ResultTempError
	ResultUnknown
)

// PropertyType classifies the ptype of a propspec. Comments recorded in
// property position get the pseudo-type PtypeComment.
type PropertyType int

const (
	PtypeComment PropertyType = iota - 1
	PtypeUnknown
	PtypeBody
	PtypeDNS
	PtypeHeader
	PtypePolicy
	PtypeSMTP
)

var methods = nametable.Table{
	{Name: "arc", Code: int(MethodARC)},
	{Name: "auth", Code: int(MethodAuth)},
	{Name: "dkim", Code: int(MethodDKIM)},
	{Name: "dkim-adsp", Code: int(MethodDKIMADSP)},
	{Name: "dkim-atps", Code: int(MethodDKIMATPS)},
	{Name: "dmarc", Code: int(MethodDMARC)},
	{Name: "dnswl", Code: int(MethodDNSWL)},
	{Name: "domainkeys", Code: int(MethodDomainKeys)},
	{Name: "iprev", Code: int(MethodIPRev)},
	{Name: "rrvs", Code: int(MethodRRVS)},
	{Name: "sender-id", Code: int(MethodSenderID)},
	{Name: "smime", Code: int(MethodSMIME)},
	{Name: "spf", Code: int(MethodSPF)},
	{Name: "vbr", Code: int(MethodVBR)},
	{Code: int(MethodUnknown)},
}

var results = nametable.Table{
	{Name: "discard", Code: int(ResultDiscard)},
	{Name: "fail", Code: int(ResultFail)},
	{Name: "neutral", Code: int(ResultNeutral)},
	{Name: "none", Code: int(ResultNone)},
	{Name: "nxdomain", Code: int(ResultNXDomain)},
	{Name: "pass", Code: int(ResultPass)},
	{Name: "permerror", Code: int(ResultPermError)},
	{Name: "policy", Code: int(ResultPolicy)},
	{Name: "signed", Code: int(ResultSigned)},
	{Name: "softfail", Code: int(ResultSoftFail)},
	{Name: "temperror", Code: int(ResultTempError)},
	{Name: "unknown", Code: int(ResultUnknown)},
	{Code: int(ResultUndefined)},
}

var ptypes = nametable.Table{
	{Name: "body", Code: int(PtypeBody)},
	{Name: "dns", Code: int(PtypeDNS)},
	{Name: "header", Code: int(PtypeHeader)},
	{Name: "policy", Code: int(PtypePolicy)},
	{Name: "smtp", Code: int(PtypeSMTP)},
	{Code: int(PtypeUnknown)},
}

func (m Method) String() string { return methods.Name(int(m)) }

func (r Result) String() string { return results.Name(int(r)) }

func (p PropertyType) String() string { return ptypes.Name(int(p)) }

// Property is one ptype.property=value element of a resinfo clause.
type Property struct {
	Type  PropertyType
	Name  string
	Value string
}

// MethodResult is one parsed resinfo clause: a method, its result, an
// optional reason, and any properties.
type MethodResult struct {
	Method     Method
	Result     Result
	Reason     string
	Properties []Property
}

// AuthResults accumulates the results parsed from one or more
// Authentication-Results fields of a single message.
type AuthResults struct {
	AuthServID string
	Version    string
	Results    []MethodResult
}

// parser states
type parserState int

const (
	stateAuthServID parserState = iota
	stateVersionOrAuthServID
	stateResinfo
	stateMethod
	stateMethodEq
	stateResult
	stateReasonEq
	stateReasonValue
	statePropOrReason
	statePtype
	statePropDot
	stateProperty
	statePropEq
	statePValue
	stateDone
)

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\v' || ch == '\f' || ch == '\r'
}

func isAlnum(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func clip(s string) string {
	if len(s) > maxValueLen {
		return s[:maxValueLen]
	}
	return s
}

func clipAppend(s, add string, max int) string {
	room := max - len(s)
	if room <= 0 {
		return s
	}
	if len(add) > room {
		add = add[:room]
	}
	return s + add
}

// Tokenize splits the body of an Authentication-Results field into
// tokens. Quoted strings keep their content with `\"` and `\\` escapes
// preserved; parenthesized comments become single tokens with interior
// whitespace collapsed; `;`, `=` and `.` come back as one-character
// tokens of their own.
func Tokenize(input string) ([]string, error) {
	if len(input) > maxFieldLen {
		return nil, fmt.Errorf("field too long: %w", ErrMalformed)
	}

	var (
		tokens  []string
		tok     strings.Builder
		intok   bool
		quoted  bool
		escaped bool
		parens  int
	)

	emit := func() error {
		tokens = append(tokens, tok.String())
		tok.Reset()
		intok = false
		if len(tokens) > maxTokens {
			return fmt.Errorf("too many tokens: %w", ErrMalformed)
		}
		return nil
	}

	for i := 0; i < len(input); i++ {
		ch := input[i]
		switch {
		case escaped:
			intok = true
			if ch == '\\' || ch == '"' {
				tok.WriteByte('\\')
			}
			tok.WriteByte(ch)
			escaped = false

		case ch == '\\' && quoted:
			escaped = true

		case ch == '"' && parens == 0:
			quoted = !quoted
			intok = true

		case ch == '(' && !quoted:
			parens++
			intok = true
			tok.WriteByte(ch)

		case ch == ')' && !quoted:
			// a stray close paren outside any comment is dropped
			if parens == 0 {
				break
			}
			parens--
			tok.WriteByte(ch)
			if parens == 0 {
				if err := emit(); err != nil {
					return nil, err
				}
			}

		case quoted:
			tok.WriteByte(ch)

		case isSpace(ch):
			if !intok {
				break
			}
			if parens > 0 {
				// whitespace inside a comment collapses to one space
				tok.WriteByte(' ')
				for i+1 < len(input) && isSpace(input[i+1]) {
					i++
				}
				break
			}
			if err := emit(); err != nil {
				return nil, err
			}

		case strings.IndexByte(delimTokens, ch) >= 0:
			if parens > 0 {
				tok.WriteByte(ch)
				break
			}
			if intok {
				if err := emit(); err != nil {
					return nil, err
				}
			}
			tok.WriteByte(ch)
			if err := emit(); err != nil {
				return nil, err
			}

		default:
			intok = true
			tok.WriteByte(ch)
		}
	}

	if quoted || parens > 0 {
		return nil, fmt.Errorf("unterminated quote or comment: %w", ErrMalformed)
	}
	if intok {
		if err := emit(); err != nil {
			return nil, err
		}
	}
	return tokens, nil
}

// Parse parses one Authentication-Results field body and appends its
// results. authserv, when non-empty, names the authserv-id of interest;
// a field carrying any other authserv-id is rejected with
// ErrAuthServMismatch. On any error the results list is rolled back to
// its length before the call.
func (a *AuthResults) Parse(hdr, authserv string) error {
	initial := len(a.Results)
	if err := a.parse(hdr, authserv); err != nil {
		a.Results = a.Results[:initial]
		return err
	}
	return nil
}

func (a *AuthResults) parse(hdr, authserv string) error {
	tokens, err := Tokenize(hdr)
	if err != nil {
		return err
	}

	var (
		host   string
		cur    MethodResult
		staged Property
	)
	prev := stateAuthServID
	state := stateAuthServID

	// add records cur unless its method is unknown, the result list is
	// full, or the method was already seen (dkim may repeat).
	add := func() {
		if cur.Method == MethodUnknown || len(a.Results) >= maxResults {
			return
		}
		if cur.Method != MethodDKIM {
			for _, r := range a.Results {
				if r.Method == cur.Method {
					return
				}
			}
		}
		a.Results = append(a.Results, cur)
	}

	for _, tok := range tokens {
		// Comments are valid almost anywhere but only the ones in
		// property position are worth keeping.
		if strings.HasPrefix(tok, "(") {
			if (state == statePropOrReason || state == statePtype) && len(cur.Properties) < maxProps {
				cur.Properties = append(cur.Properties, Property{Type: PtypeComment, Value: clip(tok)})
			}
			continue
		}

		switch state {
		case stateAuthServID:
			if tok == "" || (tok[0] < 0x80 && !isAlnum(tok[0])) {
				return fmt.Errorf("unexpected token %q in authserv-id: %w", tok, ErrMalformed)
			}
			host = clipAppend(host, tok, maxHostLen)
			prev, state = state, stateVersionOrAuthServID

		case stateVersionOrAuthServID:
			if tok == "." && prev == stateAuthServID {
				host = clipAppend(host, tok, maxHostLen)
				prev, state = state, stateAuthServID
				continue
			}

			// The authserv-id is complete; see if it is the one we
			// are looking for.
			if authserv != "" && !strings.EqualFold(authserv, host) {
				return ErrAuthServMismatch
			}
			a.AuthServID = host

			switch {
			case tok == ";":
				prev, state = state, stateMethod
			case isDigit(tok[0]):
				a.Version = clip(tok)
				prev, state = state, stateResinfo
			default:
				return fmt.Errorf("unexpected token %q after authserv-id: %w", tok, ErrMalformed)
			}

		case stateResinfo:
			if tok != ";" {
				return fmt.Errorf("unexpected token %q after version: %w", tok, ErrMalformed)
			}
			prev, state = state, stateMethod

		case stateMethod:
			if strings.EqualFold(tok, "none") {
				switch prev {
				case stateAuthServID, stateVersionOrAuthServID, stateResinfo:
					prev, state = state, stateDone
					continue
				default:
					// no result clauses may accompany "none"
					return fmt.Errorf("unexpected none: %w", ErrMalformed)
				}
			}
			cur = MethodResult{Method: Method(methods.Code(tok))}
			staged = Property{}
			prev, state = state, stateMethodEq

		case stateMethodEq:
			if tok != "=" {
				return fmt.Errorf("expected = after method, got %q: %w", tok, ErrMalformed)
			}
			prev, state = state, stateResult

		case stateResult:
			cur.Result = Result(results.Code(tok))
			prev, state = state, statePropOrReason

		case stateReasonEq:
			if tok != "=" {
				return fmt.Errorf("expected = after reason, got %q: %w", tok, ErrMalformed)
			}
			prev, state = state, stateReasonValue

		case stateReasonValue:
			cur.Reason = clip(tok)
			prev, state = state, statePtype

		case statePropOrReason:
			if tok == ";" {
				add()
				cur, staged = MethodResult{}, Property{}
				prev, state = state, stateMethod
				continue
			}
			if strings.EqualFold(tok, "reason") {
				prev, state = state, stateReasonEq
				continue
			}
			prev, state = state, statePtype
			fallthrough

		case statePtype:
			if prev == statePValue && len(tok) == 1 && strings.IndexByte(joinTokens, tok[0]) >= 0 {
				// actually part of the previous value
				if n := len(cur.Properties); n > 0 {
					cur.Properties[n-1].Value = clipAppend(cur.Properties[n-1].Value, tok, maxValueLen)
				}
				prev, state = state, statePValue
				continue
			}
			if tok == ";" {
				add()
				cur, staged = MethodResult{}, Property{}
				prev, state = state, stateMethod
				continue
			}
			ptype := PropertyType(ptypes.Code(tok))
			if ptype == PtypeUnknown {
				return fmt.Errorf("unknown ptype %q: %w", tok, ErrMalformed)
			}
			staged = Property{Type: ptype}
			prev, state = state, statePropDot

		case statePropDot:
			if tok != "." {
				return fmt.Errorf("expected . after ptype, got %q: %w", tok, ErrMalformed)
			}
			prev, state = state, stateProperty

		case stateProperty:
			staged.Name = clip(tok)
			prev, state = state, statePropEq

		case statePropEq:
			if tok != "=" {
				return fmt.Errorf("expected = after property, got %q: %w", tok, ErrMalformed)
			}
			prev, state = state, statePValue

		case statePValue:
			if prev == statePtype {
				// continuation of a value reopened by = or .
				if n := len(cur.Properties); n > 0 {
					cur.Properties[n-1].Value = clipAppend(cur.Properties[n-1].Value, tok, maxValueLen)
				}
			} else if len(cur.Properties) < maxProps {
				staged.Value = clip(tok)
				cur.Properties = append(cur.Properties, staged)
				staged = Property{}
			}
			prev, state = state, statePtype

		case stateDone:
			return fmt.Errorf("content after none: %w", ErrMalformed)
		}
	}

	// error out on non-terminal states
	switch state {
	case stateMethod, statePropOrReason, statePtype, stateDone:
	default:
		return fmt.Errorf("truncated field: %w", ErrMalformed)
	}

	add()
	return nil
}

// IsToken reports whether s can appear unquoted in an
// Authentication-Results property value. The character set is ' ' plus
// tspecials from RFC 2045, except @ so that local-part@domain values do
// not need quoting.
func IsToken(s string) bool {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch < 0x20 || ch == 0x7f {
			return false
		}
		if strings.IndexByte(" ()<>,;:\\\"/[]?=", ch) >= 0 {
			return false
		}
	}
	return true
}

// QuoteValue returns v unchanged when it is a bare token, otherwise
// quoted with " and \ escaped.
func QuoteValue(v string) string {
	if v != "" && IsToken(v) {
		return v
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(v); i++ {
		if v[i] == '"' || v[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(v[i])
	}
	b.WriteByte('"')
	return b.String()
}
