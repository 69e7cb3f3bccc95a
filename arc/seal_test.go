package arc

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/masa23/mmarc/domainkey"
)

const (
	sealTestAAR1 = "ARC-Authentication-Results: i=1; mail.example.com; spf=pass smtp.mailfrom=alice@example.com\r\n"
	sealTestAMS1 = "ARC-Message-Signature: i=1; a=rsa-sha256; c=relaxed/relaxed; d=example.com; s=selector;\r\n" +
		"        h=Date:From:To:Subject;\r\n" +
		"        bh=XgF6uYzcgcROQtd83d1Evx8x2uW+SniFx69skZp5azo=; t=1706971004;\r\n" +
		"        b=QUFBQQ==\r\n"
	sealTestAAR2 = "ARC-Authentication-Results: i=2; relay.example.org; arc=pass\r\n"
	sealTestAMS2 = "ARC-Message-Signature: i=2; a=rsa-sha256; c=relaxed/relaxed; d=example.org; s=relay;\r\n" +
		"        h=Date:From:To:Subject;\r\n" +
		"        bh=XgF6uYzcgcROQtd83d1Evx8x2uW+SniFx69skZp5azo=; t=1706971010;\r\n" +
		"        b=QkJCQg==\r\n"
)

func TestParseARCSeal(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected *ARCSeal
	}{
		{
			name: "chain none",
			input: "ARC-Seal: i=1; a=rsa-sha256; t=1706971004; cv=none;\r\n" +
				"        d=example.com; s=selector;\r\n" +
				"        b=ZeWS0mo8KKL0Y0V2Cbzj4E2R9ZRE92GPnSYUb8xZAB8hhx6sTNgYQjnJIU3pmNEz\r\n" +
				"         kkU9yAQf+lRfy1wxVJxvX4lDwU6Kfbq4vQg7LZOqnoZYRmwpiQvY4SFOL6lzgBOW\r\n" +
				"         WDBRLmhjZFM35FRzCZDledSUC/JMVQjeqA4Go1UzwB9cxh+t1S3TvuatrTsb0z0u\r\n" +
				"         ZvnytXB/u2UXA8+3VmhU4+1PDNYruK07pSzUkV4cnGJ4q5h8M2Y5x+xoVed9Zp06\r\n" +
				"         JbwAkyhvBwa3P6eHZPpr6c5O+nyV5V6buwNuQ4ORl2sJxGE4HmpTaLDCPPVIJbfA\r\n" +
				"         gvyW8Csb55+hxcTILU4ZyQ==\r\n",
			expected: &ARCSeal{
				InstanceNumber:  1,
				Algorithm:       SignatureAlgorithmRSA_SHA256,
				Timestamp:       1706971004,
				ChainValidation: ChainNone,
				Domain:          "example.com",
				Selector:        "selector",
				Signature: "ZeWS0mo8KKL0Y0V2Cbzj4E2R9ZRE92GPnSYUb8xZAB8hhx6sTNgYQjnJIU3pmNEzkkU9yAQf+lRfy1wx" +
					"VJxvX4lDwU6Kfbq4vQg7LZOqnoZYRmwpiQvY4SFOL6lzgBOWWDBRLmhjZFM35FRzCZDledSUC/JMVQje" +
					"qA4Go1UzwB9cxh+t1S3TvuatrTsb0z0uZvnytXB/u2UXA8+3VmhU4+1PDNYruK07pSzUkV4cnGJ4q5h8" +
					"M2Y5x+xoVed9Zp06JbwAkyhvBwa3P6eHZPpr6c5O+nyV5V6buwNuQ4ORl2sJxGE4HmpTaLDCPPVIJbfA" +
					"gvyW8Csb55+hxcTILU4ZyQ==",
			},
		},
		{
			name:  "chain pass",
			input: "ARC-Seal: i=2; a=rsa-sha256; t=1706971010; cv=pass; d=example.org; s=relay; b=QUFBQQ==\r\n",
			expected: &ARCSeal{
				InstanceNumber:  2,
				Algorithm:       SignatureAlgorithmRSA_SHA256,
				Timestamp:       1706971010,
				ChainValidation: ChainPass,
				Domain:          "example.org",
				Selector:        "relay",
				Signature:       "QUFBQQ==",
			},
		},
		{
			// cvタグがない場合はChainUnknownのまま(validateで弾く)
			name:  "missing cv",
			input: "ARC-Seal: i=1; a=rsa-sha256; t=1706971004; d=example.com; s=selector; b=QUFBQQ==\r\n",
			expected: &ARCSeal{
				InstanceNumber:  1,
				Algorithm:       SignatureAlgorithmRSA_SHA256,
				Timestamp:       1706971004,
				ChainValidation: ChainUnknown,
				Domain:          "example.com",
				Selector:        "selector",
				Signature:       "QUFBQQ==",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			as, err := ParseARCSeal(tc.input)
			if err != nil {
				t.Fatalf("failed to parse: %s", err)
			}
			if as.InstanceNumber != tc.expected.InstanceNumber {
				t.Errorf("instance number mismatch: got %d, want %d", as.InstanceNumber, tc.expected.InstanceNumber)
			}
			if as.Algorithm != tc.expected.Algorithm {
				t.Errorf("algorithm mismatch: got %s, want %s", as.Algorithm, tc.expected.Algorithm)
			}
			if as.Timestamp != tc.expected.Timestamp {
				t.Errorf("timestamp mismatch: got %d, want %d", as.Timestamp, tc.expected.Timestamp)
			}
			if as.ChainValidation != tc.expected.ChainValidation {
				t.Errorf("chain validation mismatch: got %s, want %s", as.ChainValidation, tc.expected.ChainValidation)
			}
			if as.Domain != tc.expected.Domain {
				t.Errorf("domain mismatch: got %s, want %s", as.Domain, tc.expected.Domain)
			}
			if as.Selector != tc.expected.Selector {
				t.Errorf("selector mismatch: got %s, want %s", as.Selector, tc.expected.Selector)
			}
			if as.Signature != tc.expected.Signature {
				t.Errorf("signature mismatch: got %s, want %s", as.Signature, tc.expected.Signature)
			}
			if as.poisoned {
				t.Error("seal is poisoned, want clean")
			}
			if as.Raw() != tc.input {
				t.Errorf("raw mismatch: got %q, want %q", as.Raw(), tc.input)
			}
		})
	}
}

func TestParseARCSealForbiddenTag(t *testing.T) {
	// RFC 8617 §4.1.3: h=やbh=を含むシールはパースは通し、
	// チェーン評価でfailにする
	testCases := []struct {
		name   string
		input  string
		wantCV ChainStatus
	}{
		{
			name:   "h tag before cv",
			input:  "ARC-Seal: i=1; a=rsa-sha256; h=From:To; t=1706971004; cv=pass; d=example.com; s=sel; b=QUFBQQ==\r\n",
			wantCV: ChainPass,
		},
		{
			name:   "h tag after cv",
			input:  "ARC-Seal: i=1; a=rsa-sha256; t=1706971004; cv=none; h=From; d=example.com; s=sel; b=QUFBQQ==\r\n",
			wantCV: ChainNone,
		},
		{
			name:   "bh tag",
			input:  "ARC-Seal: i=1; a=rsa-sha256; t=1706971004; cv=none; bh=aGFzaA==; d=example.com; s=sel; b=QUFBQQ==\r\n",
			wantCV: ChainNone,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			as, err := ParseARCSeal(tc.input)
			if err != nil {
				t.Fatalf("failed to parse: %s", err)
			}
			if !as.poisoned {
				t.Error("seal is clean, want poisoned")
			}
			// 禁止タグがcv=の値を壊さないこと
			if as.ChainValidation != tc.wantCV {
				t.Errorf("chain validation mismatch: got %s, want %s", as.ChainValidation, tc.wantCV)
			}
		})
	}
}

func TestParseARCSealError(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "wrong header name",
			input:   "DKIM-Signature: i=1; a=rsa-sha256; t=1; cv=none; d=example.com; s=sel; b=QUFBQQ==\r\n",
			wantErr: "invalid header field",
		},
		{
			name:    "instance number is not a number",
			input:   "ARC-Seal: i=x; a=rsa-sha256; t=1; cv=none; d=example.com; s=sel; b=QUFBQQ==\r\n",
			wantErr: "invalid instance number",
		},
		{
			name:    "duplicate tag",
			input:   "ARC-Seal: i=1; a=rsa-sha256; t=1; cv=none; cv=pass; d=example.com; s=sel; b=QUFBQQ==\r\n",
			wantErr: "duplicate tag",
		},
		{
			name:    "invalid chain validation result",
			input:   "ARC-Seal: i=1; a=rsa-sha256; t=1; cv=bogus; d=example.com; s=sel; b=QUFBQQ==\r\n",
			wantErr: "invalid chain validation result: bogus",
		},
		{
			// unknownはcv=の正当な値ではない (RFC 8617 §4.1.3)
			name:    "cv unknown is not a wire value",
			input:   "ARC-Seal: i=1; a=rsa-sha256; t=1; cv=unknown; d=example.com; s=sel; b=QUFBQQ==\r\n",
			wantErr: "invalid chain validation result: unknown",
		},
		{
			name:    "timestamp is not a number",
			input:   "ARC-Seal: i=1; a=rsa-sha256; t=abc; cv=none; d=example.com; s=sel; b=QUFBQQ==\r\n",
			wantErr: "invalid timestamp",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseARCSeal(tc.input)
			if err == nil {
				t.Fatalf("parse succeeded, want error %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error mismatch: got %q, want %q", err, tc.wantErr)
			}
		})
	}
}

func TestARCSealString(t *testing.T) {
	as := ARCSeal{
		InstanceNumber:  2,
		Algorithm:       SignatureAlgorithmRSA_SHA256,
		Timestamp:       12345,
		ChainValidation: ChainPass,
		Domain:          "example.com",
		Selector:        "sel",
		Signature:       strings.Repeat("B", 70),
	}
	want := "i=2; a=rsa-sha256; t=12345; cv=pass;\r\n" +
		"        d=example.com; s=sel;\r\n" +
		"        b=" + strings.Repeat("B", 64) + "\r\n" +
		"         " + strings.Repeat("B", 6)
	if got := as.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	wantNoSig := "i=2; a=rsa-sha256; t=12345; cv=pass;\r\n" +
		"        d=example.com; s=sel;\r\n" +
		"        b="
	if got := as.StringWithoutSignature(); got != wantNoSig {
		t.Errorf("StringWithoutSignature() = %q, want %q", got, wantNoSig)
	}
}

func TestARCSealValidate(t *testing.T) {
	complete := func() *ARCSeal {
		return &ARCSeal{
			InstanceNumber:  1,
			Algorithm:       SignatureAlgorithmRSA_SHA256,
			Signature:       "QUFBQQ==",
			ChainValidation: ChainNone,
			Domain:          "example.com",
			Selector:        "sel",
		}
	}

	if err := complete().validate(); err != nil {
		t.Fatalf("failed to validate complete seal: %s", err)
	}

	testCases := []struct {
		name    string
		mutate  func(*ARCSeal)
		wantErr string
	}{
		{
			name:    "missing instance number",
			mutate:  func(as *ARCSeal) { as.InstanceNumber = 0 },
			wantErr: "missing instance number",
		},
		{
			name:    "missing algorithm",
			mutate:  func(as *ARCSeal) { as.Algorithm = "" },
			wantErr: "missing algorithm tag",
		},
		{
			name:    "missing signature",
			mutate:  func(as *ARCSeal) { as.Signature = "" },
			wantErr: "missing signature tag",
		},
		{
			name:    "missing chain validation",
			mutate:  func(as *ARCSeal) { as.ChainValidation = ChainUnknown },
			wantErr: "missing chain validation tag",
		},
		{
			name:    "missing domain",
			mutate:  func(as *ARCSeal) { as.Domain = "" },
			wantErr: "missing domain tag",
		},
		{
			name:    "missing selector",
			mutate:  func(as *ARCSeal) { as.Selector = "" },
			wantErr: "missing selector tag",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			as := complete()
			tc.mutate(as)
			err := as.validate()
			if err == nil {
				t.Fatalf("validate succeeded, want error %q", tc.wantErr)
			}
			if err.Error() != tc.wantErr {
				t.Errorf("error mismatch: got %q, want %q", err, tc.wantErr)
			}
		})
	}
}

func TestARCSealSignAndVerify(t *testing.T) {
	as := &ARCSeal{
		InstanceNumber:  1,
		Algorithm:       SignatureAlgorithmRSA_SHA256,
		Timestamp:       1706971004,
		ChainValidation: ChainNone,
		Domain:          "example.com",
		Selector:        "selector",
	}
	if err := as.Sign([]string{sealTestAAR1, sealTestAMS1}, testKeys.RSAPrivateKey); err != nil {
		t.Fatalf("failed to sign: %s", err)
	}
	if as.Signature == "" {
		t.Fatal("signature is empty after signing")
	}

	parsed, err := ParseARCSeal("ARC-Seal: " + as.String() + "\r\n")
	if err != nil {
		t.Fatalf("failed to parse: %s", err)
	}
	result := parsed.Verify([]string{sealTestAAR1, sealTestAMS1}, &domainkey.DomainKey{
		KeyType:   domainkey.KeyTypeRSA,
		PublicKey: testKeys.RSAPublicKeyBase64,
	})
	if result.Status() != StatusOK {
		t.Fatalf("failed to verify: %s (%s)", result.Message(), result.Error())
	}
	if result.Message() != "good signature" {
		t.Errorf("message mismatch: got %q, want %q", result.Message(), "good signature")
	}

	// 署名対象が違えば検証は失敗する
	tampered := "ARC-Authentication-Results: i=1; mail.example.com; spf=fail smtp.mailfrom=alice@example.com\r\n"
	result = parsed.Verify([]string{tampered, sealTestAMS1}, &domainkey.DomainKey{
		KeyType:   domainkey.KeyTypeRSA,
		PublicKey: testKeys.RSAPublicKeyBase64,
	})
	if result.Status() != StatusBadSignature {
		t.Errorf("status mismatch: got %v, want %v", result.Status(), StatusBadSignature)
	}
	if result.Message() != "invalid signature" {
		t.Errorf("message mismatch: got %q, want %q", result.Message(), "invalid signature")
	}
}

func TestARCSealSignDefaults(t *testing.T) {
	as := &ARCSeal{
		InstanceNumber:  1,
		ChainValidation: ChainNone,
		Domain:          "example.com",
		Selector:        "selector",
	}
	if err := as.Sign([]string{sealTestAAR1, sealTestAMS1}, testKeys.RSAPrivateKey); err != nil {
		t.Fatalf("failed to sign: %s", err)
	}
	if as.Algorithm != SignatureAlgorithmRSA_SHA256 {
		t.Errorf("algorithm mismatch: got %s, want %s", as.Algorithm, SignatureAlgorithmRSA_SHA256)
	}
	if as.Timestamp == 0 {
		t.Error("timestamp is not set")
	}
}

func TestARCSealSignFailedChain(t *testing.T) {
	// 失敗したチェーンに封をする場合は自分のセットだけが署名対象になる
	// (RFC 8617 §5.1.2)。前のセットを含めて渡しても含めずに渡しても
	// RSASSA-PKCS1-v1_5は決定的なので署名は一致する。
	seal1 := &ARCSeal{
		InstanceNumber:  1,
		Algorithm:       SignatureAlgorithmRSA_SHA256,
		Timestamp:       1706971004,
		ChainValidation: ChainNone,
		Domain:          "example.com",
		Selector:        "selector",
	}
	if err := seal1.Sign([]string{sealTestAAR1, sealTestAMS1}, testKeys.RSAPrivateKey); err != nil {
		t.Fatalf("failed to sign first seal: %s", err)
	}
	seal1Raw := "ARC-Seal: " + seal1.String() + "\r\n"

	newSeal := func() *ARCSeal {
		return &ARCSeal{
			InstanceNumber:  2,
			Algorithm:       SignatureAlgorithmRSA_SHA256,
			Timestamp:       1706971010,
			ChainValidation: ChainFail,
			Domain:          "example.org",
			Selector:        "relay",
		}
	}

	withChain := newSeal()
	err := withChain.Sign([]string{sealTestAAR1, sealTestAMS1, seal1Raw, sealTestAAR2, sealTestAMS2}, testKeys.RSAPrivateKey)
	if err != nil {
		t.Fatalf("failed to sign with full chain: %s", err)
	}

	ownSetOnly := newSeal()
	if err := ownSetOnly.Sign([]string{sealTestAAR2, sealTestAMS2}, testKeys.RSAPrivateKey); err != nil {
		t.Fatalf("failed to sign with own set only: %s", err)
	}

	if withChain.Signature != ownSetOnly.Signature {
		t.Errorf("signature mismatch: got %s, want %s", withChain.Signature, ownSetOnly.Signature)
	}
}

func TestARCSealSignError(t *testing.T) {
	newSeal := func(instance int) *ARCSeal {
		return &ARCSeal{
			InstanceNumber:  instance,
			Algorithm:       SignatureAlgorithmRSA_SHA256,
			Timestamp:       1706971004,
			ChainValidation: ChainNone,
			Domain:          "example.com",
			Selector:        "selector",
		}
	}

	t.Run("non rsa key", func(t *testing.T) {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			t.Fatalf("failed to generate key: %s", err)
		}
		err = newSeal(1).Sign([]string{sealTestAAR1, sealTestAMS1}, priv)
		if err == nil {
			t.Fatal("sign succeeded, want error")
		}
		if got := StatusOf(err); got != StatusNotImplemented {
			t.Errorf("status mismatch: got %v, want %v", got, StatusNotImplemented)
		}
	})

	t.Run("instance number is zero", func(t *testing.T) {
		err := newSeal(0).Sign([]string{sealTestAAR1, sealTestAMS1}, testKeys.RSAPrivateKey)
		if err == nil {
			t.Fatal("sign succeeded, want error")
		}
		if got := StatusOf(err); got != StatusInvalid {
			t.Errorf("status mismatch: got %v, want %v", got, StatusInvalid)
		}
	})

	t.Run("out of sequence", func(t *testing.T) {
		err := newSeal(2).Sign([]string{sealTestAAR1, sealTestAMS1}, testKeys.RSAPrivateKey)
		if err == nil {
			t.Fatal("sign succeeded, want error")
		}
		if got := StatusOf(err); got != StatusInvalid {
			t.Errorf("status mismatch: got %v, want %v", got, StatusInvalid)
		}
		want := "instance number 2 is out of sequence with 1"
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error mismatch: got %q, want %q", err, want)
		}
	})

	t.Run("incomplete own set", func(t *testing.T) {
		err := newSeal(1).Sign([]string{sealTestAAR1}, testKeys.RSAPrivateKey)
		if err == nil {
			t.Fatal("sign succeeded, want error")
		}
		if got := StatusOf(err); got != StatusInvalid {
			t.Errorf("status mismatch: got %v, want %v", got, StatusInvalid)
		}
		if !strings.Contains(err.Error(), "incomplete arc set 1") {
			t.Errorf("error mismatch: got %q, want %q", err, "incomplete arc set 1")
		}
	})

	t.Run("incomplete prior set", func(t *testing.T) {
		// i=1のシールがない状態でi=2のcv=passは署名できない
		as := newSeal(2)
		as.ChainValidation = ChainPass
		err := as.Sign([]string{sealTestAAR1, sealTestAMS1, sealTestAAR2, sealTestAMS2}, testKeys.RSAPrivateKey)
		if err == nil {
			t.Fatal("sign succeeded, want error")
		}
		if got := StatusOf(err); got != StatusInvalid {
			t.Errorf("status mismatch: got %v, want %v", got, StatusInvalid)
		}
		if !strings.Contains(err.Error(), "incomplete arc set 1") {
			t.Errorf("error mismatch: got %q, want %q", err, "incomplete arc set 1")
		}
	})

	t.Run("unparsable arc header", func(t *testing.T) {
		err := newSeal(1).Sign([]string{"ARC-Seal: i=x; cv=none\r\n", sealTestAAR1, sealTestAMS1}, testKeys.RSAPrivateKey)
		if err == nil {
			t.Fatal("sign succeeded, want error")
		}
		if got := StatusOf(err); got != StatusSyntax {
			t.Errorf("status mismatch: got %v, want %v", got, StatusSyntax)
		}
	})

	t.Run("duplicate arc header", func(t *testing.T) {
		err := newSeal(1).Sign([]string{sealTestAAR1, sealTestAAR1, sealTestAMS1}, testKeys.RSAPrivateKey)
		if err == nil {
			t.Fatal("sign succeeded, want error")
		}
		if got := StatusOf(err); got != StatusSyntax {
			t.Errorf("status mismatch: got %v, want %v", got, StatusSyntax)
		}
	})

	t.Run("unsupported algorithm", func(t *testing.T) {
		as := newSeal(1)
		as.Algorithm = "rsa-md5"
		err := as.Sign([]string{sealTestAAR1, sealTestAMS1}, testKeys.RSAPrivateKey)
		if err == nil {
			t.Fatal("sign succeeded, want error")
		}
		if got := StatusOf(err); got != StatusNotImplemented {
			t.Errorf("status mismatch: got %v, want %v", got, StatusNotImplemented)
		}
	})
}

func TestARCSealVerifyError(t *testing.T) {
	goodKey := &domainkey.DomainKey{
		KeyType:   domainkey.KeyTypeRSA,
		PublicKey: testKeys.RSAPublicKeyBase64,
	}

	t.Run("nil seal", func(t *testing.T) {
		var as *ARCSeal
		result := as.Verify(nil, goodKey)
		if result.Status() != StatusNoSignature {
			t.Errorf("status mismatch: got %v, want %v", result.Status(), StatusNoSignature)
		}
		if result.Message() != "seal is not found" {
			t.Errorf("message mismatch: got %q, want %q", result.Message(), "seal is not found")
		}
	})

	t.Run("forbidden tag", func(t *testing.T) {
		as, err := ParseARCSeal("ARC-Seal: i=1; a=rsa-sha256; h=From; t=1; cv=pass; d=example.com; s=sel; b=QUFBQQ==\r\n")
		if err != nil {
			t.Fatalf("failed to parse: %s", err)
		}
		result := as.Verify(nil, goodKey)
		if result.Status() != StatusSyntax {
			t.Errorf("status mismatch: got %v, want %v", result.Status(), StatusSyntax)
		}
		if result.Message() != "forbidden tag found in arc-seal" {
			t.Errorf("message mismatch: got %q, want %q", result.Message(), "forbidden tag found in arc-seal")
		}
	})

	t.Run("chain validation is fail", func(t *testing.T) {
		as, err := ParseARCSeal("ARC-Seal: i=2; a=rsa-sha256; t=1; cv=fail; d=example.com; s=sel; b=QUFBQQ==\r\n")
		if err != nil {
			t.Fatalf("failed to parse: %s", err)
		}
		result := as.Verify(nil, goodKey)
		if result.Status() != StatusBadSignature {
			t.Errorf("status mismatch: got %v, want %v", result.Status(), StatusBadSignature)
		}
		if result.Message() != "chain validation result is fail" {
			t.Errorf("message mismatch: got %q, want %q", result.Message(), "chain validation result is fail")
		}
	})

	t.Run("unsupported algorithm", func(t *testing.T) {
		as, err := ParseARCSeal("ARC-Seal: i=1; a=ed25519-sha256; t=1; cv=none; d=example.com; s=sel; b=QUFBQQ==\r\n")
		if err != nil {
			t.Fatalf("failed to parse: %s", err)
		}
		result := as.Verify(nil, goodKey)
		if result.Status() != StatusNotImplemented {
			t.Errorf("status mismatch: got %v, want %v", result.Status(), StatusNotImplemented)
		}
	})

	t.Run("no key", func(t *testing.T) {
		as, err := ParseARCSeal("ARC-Seal: i=1; a=rsa-sha256; t=1; cv=none; d=example.com; s=sel; b=QUFBQQ==\r\n")
		if err != nil {
			t.Fatalf("failed to parse: %s", err)
		}
		result := as.Verify(nil, nil)
		if result.Status() != StatusNoKey {
			t.Errorf("status mismatch: got %v, want %v", result.Status(), StatusNoKey)
		}
		if result.Message() != "no key" {
			t.Errorf("message mismatch: got %q, want %q", result.Message(), "no key")
		}
	})
}
