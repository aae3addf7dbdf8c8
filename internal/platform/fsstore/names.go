// Package fsstore implements the durable filesystem layout of the
// verification workflow: the pending directory of sidecar+image pairs with
// per-card back crops, the archive directory of verified images, the
// per-image history logs, and the batch status records. The on-disk shapes
// are shared with the extraction tooling and must stay compatible.
package fsstore

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// BacksSubdir is the pending/archive subdirectory holding per-card
// cropped-back images.
const BacksSubdir = "backs"

// verifiedPrefix tags archived image filenames.
const verifiedPrefix = "verified_"

// intakeTimestampPattern matches the YYYYMMDD_HHMMSS_ prefix the intake
// pipeline stamps onto scanned filenames.
var intakeTimestampPattern = regexp.MustCompile(`^\d{8}_\d{6}_`)

// imageExtensions are the source image extensions the store recognizes,
// in the order they are probed.
var imageExtensions = []string{".jpg", ".jpeg", ".png"}

// IDFromFilename derives the stable pending-image ID from a source image
// filename: its stem.
func IDFromFilename(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ArchivedName converts a pending image filename into its archived form:
// the intake timestamp prefix is stripped and the verified prefix added.
// Already-verified names pass through unchanged.
func ArchivedName(name string) string {
	base := filepath.Base(name)
	if strings.HasPrefix(base, verifiedPrefix) {
		return base
	}
	return verifiedPrefix + intakeTimestampPattern.ReplaceAllString(base, "")
}

// backName builds the per-card cropped-back filename for one grid
// position.
func backName(id string, position int) string {
	return id + "_back" + strconv.Itoa(position) + ".jpg"
}

func sidecarName(id string) string {
	return id + ".json"
}
