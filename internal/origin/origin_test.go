package origin

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{"simple", "https://example.com", "https://example.com", true},
		{"upper case host", "https://Example.COM", "https://example.com", true},
		{"explicit default port https", "https://example.com:443", "https://example.com", true},
		{"explicit default port http", "http://example.com:80", "http://example.com", true},
		{"non-default port", "http://example.com:9736", "http://example.com:9736", true},
		{"null origin", "null", "null", true},
		{"surrounding whitespace", "  https://example.com  ", "https://example.com", true},
		{"ipv6 literal", "http://[::1]:9736", "http://[::1]:9736", true},
		{"empty", "", "", false},
		{"no scheme", "example.com", "", false},
		{"bad scheme", "ftp://example.com", "", false},
		{"with path", "https://example.com/app", "", false},
		{"with query", "https://example.com?x=1", "", false},
		{"with userinfo", "https://bob@example.com", "", false},
		{"port zero", "https://example.com:0", "", false},
		{"port overflow", "https://example.com:70000", "", false},
		{"unbracketed ipv6", "http://::1", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, ok := Normalize(tt.header)
			if ok != tt.ok {
				t.Fatalf("Normalize(%q) ok = %v, want %v", tt.header, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestAllowed_AllowList(t *testing.T) {
	allow := []string{"https://voice.example.com", "http://localhost:3000"}

	if !Allowed("https://voice.example.com", "voice.example.com", "relay.example.com", allow) {
		t.Fatalf("expected listed origin to be allowed")
	}
	if Allowed("https://evil.example.com", "evil.example.com", "relay.example.com", allow) {
		t.Fatalf("expected unlisted origin to be rejected")
	}
	if !Allowed("https://anything.example.com", "anything.example.com", "relay.example.com", []string{"*"}) {
		t.Fatalf("expected wildcard to allow any origin")
	}
	if Allowed("null", "", "relay.example.com", allow) {
		t.Fatalf("expected null origin to be rejected by allow list")
	}
}

func TestAllowed_SameHostDefault(t *testing.T) {
	tests := []struct {
		name        string
		normalized  string
		originHost  string
		requestHost string
		want        bool
	}{
		{"same host", "http://example.com:9736", "example.com:9736", "example.com:9736", true},
		{"https origin behind proxy, default ports", "https://example.com", "example.com", "example.com:443", true},
		{"different port", "http://example.com:9736", "example.com:9736", "example.com:8080", false},
		{"different host", "http://other.com", "other.com", "example.com", false},
		{"null origin", "null", "", "example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Allowed(tt.normalized, tt.originHost, tt.requestHost, nil)
			if got != tt.want {
				t.Fatalf("Allowed(%q, %q, %q) = %v, want %v", tt.normalized, tt.originHost, tt.requestHost, got, tt.want)
			}
		})
	}
}
