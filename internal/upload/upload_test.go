package upload_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ong-aas/claims-portal/internal/testutil"
	"github.com/ong-aas/claims-portal/internal/upload"
)

const mb = 1024 * 1024

func accidentProfile() upload.Profile {
	return upload.Profiles(2 * mb)["accident-images"]
}

func TestValidateRejectsWholeBatchWhenAnyFileIsOversized(t *testing.T) {
	objects := testutil.NewMemoryObjects()
	wf := upload.NewWorkflow(objects, zap.NewNop())

	files := []upload.File{
		testutil.SizedFile("a.jpg", mb),
		testutil.SizedFile("b.jpg", 3*mb),
		testutil.SizedFile("c.png", mb),
	}
	_, err := wf.Run(context.Background(), accidentProfile(), files)

	var verr *upload.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"b.jpg"}, verr.Files)
	assert.Contains(t, verr.Error(), "2.0 MiB")
	assert.Zero(t, objects.Calls(), "no network call on validation failure")
}

func TestValidateRules(t *testing.T) {
	profiles := upload.Profiles(mb)
	cases := []struct {
		name    string
		kind    string
		files   []upload.File
		wantErr string
	}{
		{"empty", "police-report", nil, "no files selected"},
		{"single kind with two files", "police-report", []upload.File{testutil.TextFile("a.pdf", "x"), testutil.TextFile("b.pdf", "x")}, "only one file"},
		{"extension outside allowlist", "accident-images", []upload.File{testutil.TextFile("a.jpg", "x"), testutil.TextFile("b.pdf", "x")}, "unsupported file type"},
		{"uppercase extension accepted", "profile-image", []upload.File{testutil.TextFile("ME.PNG", "x")}, ""},
		{"video for post", "post-media", []upload.File{testutil.TextFile("clip.mp4", "x")}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := upload.Validate(profiles[tc.kind], tc.files)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestRunKeepsOrderAndSkipsFailures(t *testing.T) {
	objects := testutil.NewMemoryObjects()
	objects.Fail[2] = errors.New("remote rejected")
	wf := upload.NewWorkflow(objects, zap.NewNop())

	files := []upload.File{
		testutil.TextFile("one.jpg", "1"),
		testutil.TextFile("two.jpg", "2"),
		testutil.TextFile("three.png", "3"),
	}
	res, err := wf.Run(context.Background(), accidentProfile(), files)
	require.NoError(t, err)

	require.Len(t, res.Outcomes, 3)
	assert.True(t, res.Outcomes[0].OK())
	assert.False(t, res.Outcomes[1].OK())
	assert.Equal(t, "upload failed", res.Outcomes[1].Error)
	assert.True(t, res.Outcomes[2].OK())

	urls := res.URLs()
	require.Len(t, urls, 2)
	assert.True(t, strings.HasSuffix(urls[0], ".jpg"))
	assert.True(t, strings.HasSuffix(urls[1], ".png"))
	assert.Len(t, res.Failed(), 1)
	assert.Equal(t, "two.jpg", res.Failed()[0].Name)
	assert.Equal(t, 3, objects.Calls(), "uploads continue after a failure")
}

func TestRunStopsOnCancellation(t *testing.T) {
	objects := testutil.NewMemoryObjects()
	ctx, cancel := context.WithCancel(context.Background())
	objects.OnPut = func(call int) {
		if call == 1 {
			cancel()
		}
	}
	wf := upload.NewWorkflow(objects, zap.NewNop())

	files := []upload.File{
		testutil.TextFile("one.jpg", "1"),
		testutil.TextFile("two.jpg", "2"),
		testutil.TextFile("three.jpg", "3"),
	}
	res, err := wf.Run(ctx, accidentProfile(), files)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, res.Outcomes, 3)
	assert.True(t, res.Outcomes[0].OK())
	assert.ErrorIs(t, res.Outcomes[1].Err(), context.Canceled)
	assert.ErrorIs(t, res.Outcomes[2].Err(), context.Canceled)
	assert.Equal(t, 1, objects.Calls())
}

func TestNewKey(t *testing.T) {
	now := time.UnixMilli(1720000000000)
	key := upload.NewKey("Photo.JPG", now)
	assert.Regexp(t, regexp.MustCompile(`^1720000000000-[0-9a-z]{26}\.jpg$`), key)
	assert.NotEqual(t, key, upload.NewKey("Photo.JPG", now))
	assert.Regexp(t, regexp.MustCompile(`^1720000000000-[0-9a-z]{26}$`), upload.NewKey("README", now))
}

func TestProfilesAccessPolicies(t *testing.T) {
	profiles := upload.Profiles(mb)
	assert.True(t, profiles["profile-image"].Public)
	assert.True(t, profiles["accident-images"].Policy.RequireVerification)
	assert.True(t, profiles["accident-images"].Multiple)
	assert.True(t, profiles["post-media"].Policy.AdminOnly)
	assert.Equal(t, upload.BucketClaims, profiles["police-report"].Bucket)
	assert.Len(t, upload.Kinds(profiles), 7)
}
