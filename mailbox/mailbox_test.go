package mailbox

import (
	"errors"
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Valid input",
			input:    "John Doe <john.doe@example.com>",
			expected: "john.doe@example.com",
		},
		{
			name:     "Valid input with multibyte username",
			input:    "John Doe <テスト@example.com>",
			expected: "テスト@example.com",
		},
		{
			name:     "Vaild input with ISO-2022-JP",
			input:    "=?ISO-2022-JP?B?GyRCRnxLXDhsJDUkTxsoQg==?= <test@example.jp>",
			expected: "test@example.jp",
		},
		{
			name:     "Valid input with simple address",
			input:    "test@example.net",
			expected: "test@example.net",
		},
		{
			name:     "Valid input with angle only",
			input:    "<test@example.net>",
			expected: "test@example.net",
		},
		{
			name:     "Invalid input with duble quote address",
			input:    "\"John Doe\" <john.doe@example.com>",
			expected: "john.doe@example.com",
		},
		{
			name:     "Invalid input with duble quote address",
			input:    "\"John<aaa@aa.com>Doe\" <john.doe@example.com>",
			expected: "john.doe@example.com",
		},
		{
			name:     "Invalid input with duble quote address",
			input:    "hoge <\"ho ge\"@example.com>",
			expected: "\"ho ge\"@example.com",
		},
		{
			name:     "Invalid input with duble quote address and atmark",
			input:    "John Doe <\"john.doe@aa\"@example.com>",
			expected: "\"john.doe@aa\"@example.com",
		},
		{
			name:     "Valid input if the string is empty",
			input:    "",
			expected: "",
		},
		{
			name:     "Valid input if the string is empty2",
			input:    "Maria <>",
			expected: "",
		},
		{
			name:     "Valid input with comment",
			input:    "test@example.net (work)",
			expected: "test@example.net",
		},
		{
			name:     "Valid input with nested comment",
			input:    "(outer (inner)) test@example.net",
			expected: "test@example.net",
		},
		{
			name:     "Valid input with comment before angle",
			input:    "(Info) <user@example.org>",
			expected: "user@example.org",
		},
		{
			name:     "Multiple addresses returns the first",
			input:    "Alice <alice@example.com>, Bob <bob@example.net>",
			expected: "alice@example.com",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			addr := Extract(tc.input)

			if addr != tc.expected {
				t.Errorf("Expected address: %s, but got: %s", tc.expected, addr)
			}
		})
	}
}

func TestParse(t *testing.T) {
	testCases := []struct {
		name           string
		input          string
		expectedLocal  string
		expectedDomain string
		expectedErr    error
	}{
		{
			name:           "Valid input",
			input:          "John Doe <john.doe@example.com>",
			expectedLocal:  "john.doe",
			expectedDomain: "example.com",
		},
		{
			name:           "Quoted local part with space",
			input:          "hoge <\"ho ge\"@example.com>",
			expectedLocal:  "\"ho ge\"",
			expectedDomain: "example.com",
		},
		{
			name:           "Quoted local part with atmark",
			input:          "John Doe <\"john.doe@aa\"@example.com>",
			expectedLocal:  "\"john.doe@aa\"",
			expectedDomain: "example.com",
		},
		{
			name:           "Simple address with comment",
			input:          "test@example.net (work)",
			expectedLocal:  "test",
			expectedDomain: "example.net",
		},
		{
			name:        "Missing domain",
			input:       "test@",
			expectedErr: ErrInvalidEmailFormat,
		},
		{
			name:        "Missing atmark",
			input:       "no-at-sign",
			expectedErr: ErrInvalidEmailFormat,
		},
		{
			name:        "Empty input",
			input:       "",
			expectedErr: ErrInvalidEmailFormat,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			local, domain, err := Parse(tc.input)

			if !errors.Is(err, tc.expectedErr) {
				t.Errorf("Expected error: %v, but got: %v", tc.expectedErr, err)
			}
			if local != tc.expectedLocal {
				t.Errorf("Expected local: %s, but got: %s", tc.expectedLocal, local)
			}
			if domain != tc.expectedDomain {
				t.Errorf("Expected domain: %s, but got: %s", tc.expectedDomain, domain)
			}
		})
	}
}

func TestDomain(t *testing.T) {
	testCases := []struct {
		name           string
		input          string
		expectedDomain string
		expectedErr    error
	}{
		{
			name:           "Valid input",
			input:          "John Doe <john.doe@example.com>",
			expectedDomain: "example.com",
			expectedErr:    nil,
		},
		{
			name:           "Valid input with multibyte username",
			input:          "John Doe <テスト@example.com>",
			expectedDomain: "example.com",
			expectedErr:    nil,
		},
		{
			name:           "Vaild input with ISO-2022-JP",
			input:          "=?ISO-2022-JP?B?GyRCRnxLXDhsJDUkTxsoQg==?= <test@example.jp>",
			expectedDomain: "example.jp",
		},
		{
			name:           "Valid input with simple address",
			input:          "test@example.net",
			expectedDomain: "example.net",
		},
		{
			name:           "Valid input with angle only",
			input:          "<test@example.net>",
			expectedDomain: "example.net",
		},
		{
			name:           "Invalid input with duble quote address",
			input:          "\"John Doe\" <john.doe@example.com>",
			expectedDomain: "example.com",
		},
		{
			name:           "Invalid input with duble quote address",
			input:          "\"John<aaa@aa.com>Doe\" <john.doe@example.com>",
			expectedDomain: "example.com",
		},
		{
			name:           "Invalid input with duble quote address",
			input:          "hoge <\"ho ge\"@example.com>",
			expectedDomain: "example.com",
		},
		{
			name:           "Invalid input with duble quote address and atmark",
			input:          "John Doe <\"john.doe@aa\"@example.com>",
			expectedDomain: "example.com",
		},
		{
			name:           "Valid input if the string is empty",
			input:          "",
			expectedDomain: "",
			expectedErr:    ErrInvalidEmailFormat,
		},
		{
			name:           "Valid input if the string is empty2",
			input:          "Maria <>",
			expectedDomain: "",
			expectedErr:    ErrInvalidEmailFormat,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			domain, err := Domain(tc.input)

			if domain != tc.expectedDomain {
				t.Errorf("Expected domain: %s, but got: %s", tc.expectedDomain, domain)
			}

			if !errors.Is(err, tc.expectedErr) {
				t.Errorf("Expected error: %v, but got: %v", tc.expectedErr, err)
			}
		})
	}
}

func TestParseList(t *testing.T) {
	testCases := []struct {
		name        string
		input       string
		expected    []Address
		expectedErr error
	}{
		{
			name:  "two simple addresses",
			input: "a@example.com, b@example.org",
			expected: []Address{
				{Local: "a", Domain: "example.com"},
				{Local: "b", Domain: "example.org"},
			},
		},
		{
			name:  "comma inside quoted display name",
			input: "Alice <alice@example.com>, \"Bob, Jr.\" <bob@example.net>",
			expected: []Address{
				{Local: "alice", Domain: "example.com"},
				{Local: "bob", Domain: "example.net"},
			},
		},
		{
			name:  "comma inside comment",
			input: "a@example.com (one, two), b@example.org",
			expected: []Address{
				{Local: "a", Domain: "example.com"},
				{Local: "b", Domain: "example.org"},
			},
		},
		{
			name:  "trailing comma and empty element",
			input: "a@example.com, , b@example.org,",
			expected: []Address{
				{Local: "a", Domain: "example.com"},
				{Local: "b", Domain: "example.org"},
			},
		},
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
		{
			name:        "invalid element",
			input:       "a@example.com, bogus",
			expectedErr: ErrInvalidEmailFormat,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseList(tc.input)

			if !errors.Is(err, tc.expectedErr) {
				t.Errorf("Expected error: %v, but got: %v", tc.expectedErr, err)
			}
			if tc.expectedErr != nil {
				return
			}
			if !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("unexpected result: got=%v, expect=%v", got, tc.expected)
			}
		})
	}
}
