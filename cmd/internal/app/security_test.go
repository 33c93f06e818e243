package app

import (
	"strings"
	"testing"
)

func TestValidateSecurityConfig(t *testing.T) {
	access := "access-secret-0123456789-0123456789-abc"
	refresh := "refresh-secret-0123456789-0123456789-xyz"

	cases := []struct {
		name    string
		access  string
		refresh string
		wantErr string
	}{
		{name: "ok", access: access, refresh: refresh},
		{name: "missing access", access: "", refresh: refresh, wantErr: "NOTENEST_ACCESS_TOKEN_SECRET is missing"},
		{name: "missing refresh", access: access, refresh: "", wantErr: "NOTENEST_REFRESH_TOKEN_SECRET is missing"},
		{name: "short access", access: "short", refresh: refresh, wantErr: "too short"},
		{name: "short refresh", access: access, refresh: "short", wantErr: "too short"},
		{name: "equal secrets", access: access, refresh: access, wantErr: "must differ"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("NOTENEST_ACCESS_TOKEN_SECRET", tc.access)
			t.Setenv("NOTENEST_REFRESH_TOKEN_SECRET", tc.refresh)

			err := ValidateSecurityConfig()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %v does not contain %q", err, tc.wantErr)
			}
		})
	}
}
