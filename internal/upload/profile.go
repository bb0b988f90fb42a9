package upload

import (
	"sort"

	"github.com/ong-aas/claims-portal/internal/guard"
)

// Bucket names.
const (
	BucketProfiles = "profiles"
	BucketClaims   = "claims"
	BucketPosts    = "posts"
)

var (
	imageTypes    = []string{".jpg", ".jpeg", ".png"}
	documentTypes = []string{".jpg", ".jpeg", ".png", ".pdf"}
	mediaTypes    = []string{".jpg", ".jpeg", ".png", ".mp4"}
)

// Profile describes one kind of upload.
type Profile struct {
	Kind     string
	Bucket   string
	Accept   []string
	MaxBytes int64
	Multiple bool
	// Public kinds may be uploaded without a session (registration documents).
	Public bool
	Policy guard.Policy
}

// Profiles returns every upload kind capped at maxBytes per file.
func Profiles(maxBytes int64) map[string]Profile {
	list := []Profile{
		{Kind: "profile-image", Bucket: BucketProfiles, Accept: imageTypes, Public: true},
		{Kind: "driver-license", Bucket: BucketProfiles, Accept: documentTypes, Public: true},
		{Kind: "insurance-document", Bucket: BucketProfiles, Accept: documentTypes, Public: true},
		{Kind: "accident-images", Bucket: BucketClaims, Accept: imageTypes, Multiple: true, Policy: guard.Verified},
		{Kind: "police-report", Bucket: BucketClaims, Accept: documentTypes, Policy: guard.Verified},
		{Kind: "insurance-receipt", Bucket: BucketClaims, Accept: documentTypes, Policy: guard.Verified},
		{Kind: "post-media", Bucket: BucketPosts, Accept: mediaTypes, Policy: guard.Admin},
	}
	out := make(map[string]Profile, len(list))
	for _, p := range list {
		p.MaxBytes = maxBytes
		out[p.Kind] = p
	}
	return out
}

// Kinds lists profile kinds in stable order.
func Kinds(profiles map[string]Profile) []string {
	kinds := make([]string, 0, len(profiles))
	for k := range profiles {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
