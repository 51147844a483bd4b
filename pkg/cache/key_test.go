package cache

import (
	"net/url"
	"strings"
	"testing"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  CacheKey
		want string
	}{
		{
			name: "simple endpoint no params",
			key:  CacheKey{Endpoint: "/universites/domaines/"},
			want: "memocloud:universites/domaines",
		},
		{
			name: "endpoint with query params",
			key: CacheKey{
				Endpoint:    listingEndpoint,
				QueryParams: url.Values{"page": []string{"2"}},
			},
			want: "memocloud:memoires/universites/ecole-des-travaux/memoires:page=2",
		},
		{
			name: "multiple query params sorted",
			key: CacheKey{
				Endpoint: listingEndpoint,
				QueryParams: url.Values{
					"page":     []string{"1"},
					"ordering": []string{"-created_at"},
				},
			},
			want: "memocloud:memoires/universites/ecole-des-travaux/memoires:ordering=-created_at:page=1",
		},
		{
			name: "repeated query values joined",
			key: CacheKey{
				Endpoint:    "/x/",
				QueryParams: url.Values{"id": []string{"1", "2"}},
			},
			want: "memocloud:x:id=1,2",
		},
		{
			name: "authenticated endpoint",
			key:  CacheKey{Endpoint: "/auth/me/", Principal: "abc"},
			want: "memocloud:auth/me:user=abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.key.String()
			if got != tt.want {
				t.Errorf("CacheKey.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCacheKey_Determinism(t *testing.T) {
	key := CacheKey{
		Endpoint: listingEndpoint,
		QueryParams: url.Values{
			"ordering": []string{"-created_at"},
			"page":     []string{"1"},
			"search":   []string{"pont"},
		},
		Principal: Principal("tok"),
	}

	first := key.String()
	for i := 0; i < 10; i++ {
		if got := key.String(); got != first {
			t.Errorf("iteration %d = %v, want %v (not deterministic)", i, got, first)
		}
	}
}

func TestPrincipal(t *testing.T) {
	if got := Principal(""); got != "" {
		t.Errorf("Principal(\"\") = %q, want empty", got)
	}

	a := Principal("secret-token")
	if len(a) != 16 {
		t.Errorf("Principal length = %d, want 16", len(a))
	}
	if strings.Contains(a, "secret") {
		t.Error("Principal must not embed the token")
	}
	if a != Principal("secret-token") {
		t.Error("Principal is not stable")
	}
	if a == Principal("other-token") {
		t.Error("different tokens produced the same principal")
	}
}
