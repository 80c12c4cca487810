package notify

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/darshan-rambhia/fleetglint/internal/model"
	"github.com/darshan-rambhia/fleetglint/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSettings(t *testing.T) *Settings {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewSettings(st)
}

func ptr[T any](v T) *T { return &v }

func TestMaskToken(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"short", "..."},
		{"abcdefghij", "..."},
		{"abcdefghijk", "abcdef...hijk"},
		{"Xy12ZZZZZZZZZZZZZZ9876", "Xy12ZZ...9876"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskToken(tt.in), tt.in)
	}
}

func TestSettings_DefaultsWhenUnsaved(t *testing.T) {
	s := newTestSettings(t)
	got, err := s.Get(context.Background())
	require.NoError(t, err)

	assert.False(t, got.Enabled)
	assert.False(t, got.HasToken)
	assert.Empty(t, got.LineToken)
	assert.Equal(t, 15, got.CooldownMinutes)
	assert.Equal(t, 85.0, got.RAMThreshold)
}

func TestSettings_UpdateIsPartial(t *testing.T) {
	s := newTestSettings(t)
	ctx := context.Background()

	got, err := s.Update(ctx, ConfigPatch{
		Enabled:   ptr(true),
		LineToken: ptr("  token-abcdefghijklmnop  "),
	})
	require.NoError(t, err)
	assert.True(t, got.Enabled)
	assert.True(t, got.HasToken)
	assert.Equal(t, "token-...mnop", got.LineToken)
	assert.Equal(t, 90.0, got.CPUThreshold, "absent fields keep defaults")

	got, err = s.Update(ctx, ConfigPatch{CooldownMinutes: ptr(5), LineToken: ptr("   ")})
	require.NoError(t, err)
	assert.Equal(t, 5, got.CooldownMinutes)
	assert.True(t, got.Enabled, "earlier update survives")
	assert.Equal(t, "token-...mnop", got.LineToken, "blank token keeps the stored one")

	again, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, got.CooldownMinutes, again.CooldownMinutes)
	assert.False(t, again.UpdatedAt.IsZero())
}

func TestConfigPatch_Rejections(t *testing.T) {
	base := model.DefaultNotificationConfig()
	_, err := ConfigPatch{
		CPUThreshold:    ptr(120.0),
		DiskThreshold:   ptr(-1.0),
		CooldownMinutes: ptr(-5),
	}.Apply(base)

	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "cpu_threshold")
	assert.Contains(t, ve.Fields, "disk_threshold")
	assert.Contains(t, ve.Fields, "cooldown_minutes")
	assert.NotContains(t, ve.Fields, "ram_threshold")
}

func TestSettings_RejectedUpdateChangesNothing(t *testing.T) {
	s := newTestSettings(t)
	ctx := context.Background()

	_, err := s.Update(ctx, ConfigPatch{Enabled: ptr(true), RAMThreshold: ptr(101.0)})
	require.Error(t, err)

	got, err := s.Get(ctx)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
}

func FuzzMaskToken(f *testing.F) {
	f.Add("")
	f.Add("short")
	f.Add("abcdef-secret-1234")
	f.Add("トークントークントークン")
	f.Fuzz(func(t *testing.T, tok string) {
		got := MaskToken(tok)
		if tok == "" {
			if got != "" {
				t.Fatalf("empty token masked to %q", got)
			}
			return
		}
		if !strings.Contains(got, "...") {
			t.Fatalf("MaskToken(%q) = %q has no mask", tok, got)
		}
		if len([]rune(tok)) > 10 && got == tok {
			t.Fatalf("token returned unmasked")
		}
	})
}
