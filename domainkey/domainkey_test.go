package domainkey

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/foxcpp/go-mockdns"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// mockTXTResolver adapts a mockdns.Resolver to TXTResolver with a fixed
// authentic bit.
type mockTXTResolver struct {
	r         *mockdns.Resolver
	authentic bool
}

func (m *mockTXTResolver) LookupTXT(ctx context.Context, name string) ([]string, bool, error) {
	recs, err := m.r.LookupTXT(ctx, name)
	return recs, m.authentic, err
}

func TestParseDomainKeyRecode(t *testing.T) {
	tests := []struct {
		name   string
		record string
		want   DomainKey
	}{
		{
			name:   "full record",
			record: "v=DKIM1; h=sha256; k=rsa; n=mail key; p=MIIBCg; s=email; t=y:s",
			want: DomainKey{
				Version:       "DKIM1",
				HashAlgo:      []HashAlgo{HashAlgoSHA256},
				KeyType:       KeyTypeRSA,
				Notes:         "mail key",
				PublicKey:     "MIIBCg",
				ServiceType:   []ServiceType{ServiceTypeEmail},
				SelectorFlags: []SelectorFlags{SelectorFlagsTest, SelectorFlagsStrictDomain},
			},
		},
		{
			name:   "minimal",
			record: "p=MIIBCg",
			want:   DomainKey{PublicKey: "MIIBCg"},
		},
		{
			name:   "hash algorithm list",
			record: "h=sha1:sha256; p=AAA",
			want:   DomainKey{HashAlgo: []HashAlgo{HashAlgoSHA1, HashAlgoSHA256}, PublicKey: "AAA"},
		},
		{
			name:   "unknown hash algorithm kept",
			record: "h=sha512; p=AAA",
			want:   DomainKey{HashAlgo: []HashAlgo{"sha512"}, PublicKey: "AAA"},
		},
		{
			name:   "unknown key type kept",
			record: "k=ed25519; p=AAA",
			want:   DomainKey{KeyType: "ed25519", PublicKey: "AAA"},
		},
		{
			name:   "unknown service type kept",
			record: "s=web; p=AAA",
			want:   DomainKey{ServiceType: []ServiceType{"web"}, PublicKey: "AAA"},
		},
		{
			name:   "wildcard service",
			record: "s=*; p=AAA",
			want:   DomainKey{ServiceType: []ServiceType{ServiceTypeAll}, PublicKey: "AAA"},
		},
		{
			name:   "unknown selector flag ignored",
			record: "t=y:x; p=AAA",
			want:   DomainKey{SelectorFlags: []SelectorFlags{SelectorFlagsTest}, PublicKey: "AAA"},
		},
		{
			name:   "whitespace inside public key removed",
			record: "p= MIIB Cg\tKC ",
			want:   DomainKey{PublicKey: "MIIBCgKC"},
		},
		{
			name:   "empty public key",
			record: "v=DKIM1; p=",
			want:   DomainKey{Version: "DKIM1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDomainKeyRecode(tt.record)
			if err != nil {
				t.Fatalf("ParseDomainKeyRecode() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.IgnoreUnexported(DomainKey{})); diff != "" {
				t.Errorf("ParseDomainKeyRecode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIsTestFlag(t *testing.T) {
	tests := []struct {
		name string
		key  DomainKey
		want bool
	}{
		{"no flags", DomainKey{}, false},
		{"test flag", DomainKey{SelectorFlags: []SelectorFlags{SelectorFlagsTest}}, true},
		{"strict only", DomainKey{SelectorFlags: []SelectorFlags{SelectorFlagsStrictDomain}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.IsTestFlag(); got != tt.want {
				t.Errorf("IsTestFlag() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsService(t *testing.T) {
	tests := []struct {
		name    string
		key     DomainKey
		service ServiceType
		want    bool
	}{
		{"no service tag matches everything", DomainKey{}, ServiceTypeEmail, true},
		{"email matches email", DomainKey{ServiceType: []ServiceType{ServiceTypeEmail}}, ServiceTypeEmail, true},
		{"web does not match email", DomainKey{ServiceType: []ServiceType{"web"}}, ServiceTypeEmail, false},
		{"wildcard matches email", DomainKey{ServiceType: []ServiceType{ServiceTypeAll}}, ServiceTypeEmail, true},
		{"asking for all always matches", DomainKey{ServiceType: []ServiceType{"web"}}, ServiceTypeAll, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.IsService(tt.service); got != tt.want {
				t.Errorf("IsService(%q) = %v, want %v", tt.service, got, tt.want)
			}
		})
	}
}

func TestAllowsHash(t *testing.T) {
	tests := []struct {
		name string
		key  DomainKey
		algo HashAlgo
		want bool
	}{
		{"no h tag allows sha256", DomainKey{}, HashAlgoSHA256, true},
		{"listed algorithm allowed", DomainKey{HashAlgo: []HashAlgo{HashAlgoSHA256}}, HashAlgoSHA256, true},
		{"unlisted algorithm rejected", DomainKey{HashAlgo: []HashAlgo{HashAlgoSHA256}}, HashAlgoSHA1, false},
		{"unknown algorithm never matches", DomainKey{HashAlgo: []HashAlgo{"sha512"}}, HashAlgoSHA256, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.AllowsHash(tt.algo); got != tt.want {
				t.Errorf("AllowsHash(%q) = %v, want %v", tt.algo, got, tt.want)
			}
		})
	}
}

func TestQueryName(t *testing.T) {
	tests := []struct {
		name     string
		selector string
		domain   string
		want     string
	}{
		{"ascii", "selector1", "example.com", "selector1._domainkey.example.com"},
		{"idn domain", "sel", "bücher.example", "sel._domainkey.xn--bcher-kva.example"},
		{"ascii case preserved", "SEL", "Example.COM", "SEL._domainkey.Example.COM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QueryName(tt.selector, tt.domain)
			if err != nil {
				t.Fatalf("QueryName() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("QueryName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLookupARCDomainKey(t *testing.T) {
	zones := map[string]mockdns.Zone{
		"selector1._domainkey.example.com.": {
			TXT: []string{"v=DKIM1; k=rsa; p=" + testPublicKeyPKCS1},
		},
		"revoked._domainkey.example.com.": {
			TXT: []string{"v=DKIM1; p="},
		},
		"multi._domainkey.example.com.": {
			TXT: []string{"p=AAA", "p=BBB"},
		},
		"badver._domainkey.example.com.": {
			TXT: []string{"v=DKIM2; p=AAA"},
		},
		"nopub._domainkey.example.com.": {
			TXT: []string{"v=DKIM1; t=y"},
		},
		"sel._domainkey.xn--bcher-kva.example.": {
			TXT: []string{"p=AAA"},
		},
	}
	resolver := &mockTXTResolver{r: &mockdns.Resolver{Zones: zones}, authentic: true}
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		got, err := LookupARCDomainKey(ctx, "selector1", "example.com", resolver)
		if err != nil {
			t.Fatalf("LookupARCDomainKey() error = %v", err)
		}
		if got.PublicKey != testPublicKeyPKCS1 {
			t.Errorf("PublicKey = %q, want %q", got.PublicKey, testPublicKeyPKCS1)
		}
		if got.KeyType != KeyTypeRSA {
			t.Errorf("KeyType = %q, want %q", got.KeyType, KeyTypeRSA)
		}
		if !got.Authentic {
			t.Error("Authentic = false, want true")
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := LookupARCDomainKey(ctx, "missing", "example.com", resolver)
		if !errors.Is(err, ErrNoRecordFound) {
			t.Errorf("error = %v, want ErrNoRecordFound", err)
		}
	})

	t.Run("revoked key", func(t *testing.T) {
		_, err := LookupARCDomainKey(ctx, "revoked", "example.com", resolver)
		if !errors.Is(err, ErrKeyRevoked) {
			t.Errorf("error = %v, want ErrKeyRevoked", err)
		}
	})

	t.Run("multiple txt records", func(t *testing.T) {
		_, err := LookupARCDomainKey(ctx, "multi", "example.com", resolver)
		if !errors.Is(err, ErrMultipleRecords) {
			t.Errorf("error = %v, want ErrMultipleRecords", err)
		}
	})

	t.Run("wrong version", func(t *testing.T) {
		_, err := LookupARCDomainKey(ctx, "badver", "example.com", resolver)
		if !errors.Is(err, ErrInvalidVersion) {
			t.Errorf("error = %v, want ErrInvalidVersion", err)
		}
	})

	t.Run("record without public key", func(t *testing.T) {
		_, err := LookupARCDomainKey(ctx, "nopub", "example.com", resolver)
		if !errors.Is(err, ErrNoRecordFound) {
			t.Errorf("error = %v, want ErrNoRecordFound", err)
		}
	})

	t.Run("idn domain", func(t *testing.T) {
		got, err := LookupARCDomainKey(ctx, "sel", "bücher.example", resolver)
		if err != nil {
			t.Fatalf("LookupARCDomainKey() error = %v", err)
		}
		if got.PublicKey != "AAA" {
			t.Errorf("PublicKey = %q, want %q", got.PublicKey, "AAA")
		}
	})
}

func TestFileSource(t *testing.T) {
	const keyFile = `# test keys
selector1._domainkey.example.com  v=DKIM1; k=rsa; p=AAA
SELECTOR2._domainkey.EXAMPLE.COM. v=DKIM1; p=BBB

multi._domainkey.example.com	p=AAA
multi._domainkey.example.com	p=BBB
`
	path := filepath.Join(t.TempDir(), "keys.txt")
	if err := os.WriteFile(path, []byte(keyFile), 0600); err != nil {
		t.Fatal(err)
	}
	src, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("NewFileSource() error = %v", err)
	}
	ctx := context.Background()

	t.Run("lookup with trailing dot", func(t *testing.T) {
		recs, authentic, err := src.LookupTXT(ctx, "selector1._domainkey.example.com.")
		if err != nil {
			t.Fatalf("LookupTXT() error = %v", err)
		}
		if len(recs) != 1 || recs[0] != "v=DKIM1; k=rsa; p=AAA" {
			t.Errorf("LookupTXT() = %q", recs)
		}
		if authentic {
			t.Error("authentic = true, want false")
		}
	})

	t.Run("case insensitive qname", func(t *testing.T) {
		got, err := LookupARCDomainKey(ctx, "selector2", "example.com", src)
		if err != nil {
			t.Fatalf("LookupARCDomainKey() error = %v", err)
		}
		if got.PublicKey != "BBB" {
			t.Errorf("PublicKey = %q, want %q", got.PublicKey, "BBB")
		}
	})

	t.Run("missing qname", func(t *testing.T) {
		_, err := LookupARCDomainKey(ctx, "missing", "example.com", src)
		if !errors.Is(err, ErrNoRecordFound) {
			t.Errorf("error = %v, want ErrNoRecordFound", err)
		}
	})

	t.Run("duplicate qname rejected at lookup", func(t *testing.T) {
		_, err := LookupARCDomainKey(ctx, "multi", "example.com", src)
		if !errors.Is(err, ErrMultipleRecords) {
			t.Errorf("error = %v, want ErrMultipleRecords", err)
		}
	})
}

func TestNewFileSourceMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.txt")
	if err := os.WriteFile(path, []byte("loneqname\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileSource(path); err == nil {
		t.Error("NewFileSource() error = nil, want parse error")
	}
}
