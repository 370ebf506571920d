package verify

import (
	"context"
	"fmt"
	"math"

	"rommate/internal/catalog"
	"rommate/internal/checksum"
	"rommate/internal/header"
	"rommate/internal/logging"
	"rommate/internal/romfile"
	"rommate/internal/textutil"
)

// match runs tiers 4 through 9 against a non-empty catalog.
func (e *Engine) match(ctx context.Context, res Result, src *romfile.Source, cat *catalog.Catalog) Result {
	digests, err := e.digests.Digest(src, 0)
	if err != nil {
		return e.readError(ctx, res, err)
	}
	res.CRC32, res.MD5, res.SHA1 = digests.CRC32, digests.MD5, digests.SHA1

	if out, ok := e.exactMatch(ctx, res, src, cat); ok {
		return out
	}
	if out, ok := e.headerMatch(ctx, res, src, cat); ok {
		return out
	}
	if out, ok := partialDigestMatch(res, digests, cat); ok {
		return out
	}

	name := src.Name()
	scores := make(map[string]float64)
	score := func(game string) float64 {
		if s, ok := scores[game]; ok {
			return s
		}
		s := textutil.Similarity(name, game)
		scores[game] = s
		return s
	}
	if out, ok := e.nameSizeMatch(res, src.Size(), cat, score); ok {
		return out
	}
	if out, ok := e.nameOnlyMatch(res, cat, score); ok {
		return out
	}
	return finish(res, StatusUnknown, "Unknown ROM (not in database)")
}

// Tier 4: CRC32 and exact size.
func (e *Engine) exactMatch(ctx context.Context, res Result, src *romfile.Source, cat *catalog.Catalog) (Result, bool) {
	var hits []catalog.Entry
	for _, entry := range cat.Lookup(res.CRC32) {
		if entry.Size == src.Size() {
			hits = append(hits, entry)
		}
	}
	if len(hits) == 0 {
		return res, false
	}

	res.Game = hits[0].Game
	res.Matches = uniqueGames(hits)
	res.CRCCollision = distinctTitles(res.Matches) > 1
	if res.CRCCollision {
		logging.WarnWithContext(logging.WithContext(ctx, e.logger), "crc32 shared by different titles", "crc_collision",
			logging.String(logging.FieldPath, res.Path),
			logging.String("crc32", res.CRC32),
			logging.Any("titles", res.Matches),
			logging.String(logging.FieldErrorHint, "compare md5/sha1 against the DAT to pick the right title"),
			logging.String(logging.FieldImpact, "reported title may be wrong"))
	}

	message := "Verified Good Dump"
	if len(res.Matches) > 1 {
		message = fmt.Sprintf("Verified Good Dump (matches %d entries)", len(res.Matches))
	}
	return finish(res, StatusVerified, message), true
}

// Tier 5: CRC32 after skipping a suspected copier header, no size gate.
func (e *Engine) headerMatch(ctx context.Context, res Result, src *romfile.Source, cat *catalog.Catalog) (Result, bool) {
	size := header.Detect(src, res.System)
	if size == 0 {
		return res, false
	}
	stripped, err := e.digests.Digest(src, size)
	if err != nil {
		e.logger.Debug("header-stripped digest failed", logging.String(logging.FieldPath, res.Path), logging.Error(err))
		return res, false
	}
	hits := cat.Lookup(stripped.CRC32)
	if len(hits) == 0 {
		return res, false
	}
	res.CRC32, res.MD5, res.SHA1 = stripped.CRC32, stripped.MD5, stripped.SHA1
	res.HeaderSize = size
	res.Game = hits[0].Game
	res.Matches = uniqueGames(hits)
	return finish(res, StatusHasHeader, "Has External Header (fixable)"), true
}

// Tier 6: two or more recorded digests agree. Best agreement wins, earliest
// entry on ties.
func partialDigestMatch(res Result, d checksum.Digests, cat *catalog.Catalog) (Result, bool) {
	best, bestCount := -1, 1
	for i, entry := range cat.All() {
		count := 0
		if entry.CRC32 != "" && entry.CRC32 == d.CRC32 {
			count++
		}
		if entry.MD5 != "" && entry.MD5 == d.MD5 {
			count++
		}
		if entry.SHA1 != "" && entry.SHA1 == d.SHA1 {
			count++
		}
		if count > bestCount {
			best, bestCount = i, count
		}
	}
	if best < 0 {
		return res, false
	}
	res.Game = cat.At(best).Game
	res.DigestsMatched = bestCount
	return finish(res, StatusProbable, fmt.Sprintf("%d/3 checksums match", bestCount)), true
}

// Tier 7: similar name with a size within tolerance.
func (e *Engine) nameSizeMatch(res Result, size int64, cat *catalog.Catalog, score func(string) float64) (Result, bool) {
	var best string
	bestScore := -1.0
	for _, entry := range cat.All() {
		if entry.Size < 0 || abs(entry.Size-size) > e.policy.SizeTolerance {
			continue
		}
		s := score(entry.Game)
		if s >= e.policy.NameSizeSimilarity && s > bestScore {
			best, bestScore = entry.Game, s
		}
	}
	if bestScore < 0 {
		return res, false
	}
	res.Game = best
	res.Similarity = round(bestScore)
	return finish(res, StatusLikely, fmt.Sprintf("Likely match (%.0f%% name similarity, size within %d bytes)", bestScore*100, e.policy.SizeTolerance)), true
}

// Tier 8: similar name regardless of size. Best score wins, earliest entry on ties.
func (e *Engine) nameOnlyMatch(res Result, cat *catalog.Catalog, score func(string) float64) (Result, bool) {
	var best string
	bestScore := -1.0
	for _, entry := range cat.All() {
		s := score(entry.Game)
		if s >= e.policy.NameOnlySimilarity && s > bestScore {
			best, bestScore = entry.Game, s
		}
	}
	if bestScore < 0 {
		return res, false
	}
	res.Game = best
	res.Similarity = round(bestScore)
	return finish(res, StatusNameMatch, fmt.Sprintf("Possible match by name (%.0f%% similarity)", bestScore*100)), true
}

func uniqueGames(entries []catalog.Entry) []string {
	seen := make(map[string]struct{}, len(entries))
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if _, dup := seen[entry.Game]; dup {
			continue
		}
		seen[entry.Game] = struct{}{}
		out = append(out, entry.Game)
	}
	return out
}

// distinctTitles counts titles once region and revision tags are removed.
func distinctTitles(games []string) int {
	seen := make(map[string]struct{}, len(games))
	for _, g := range games {
		seen[textutil.NormalizeTitle(g)] = struct{}{}
	}
	return len(seen)
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func round(f float64) float64 {
	return math.Round(f*1000) / 1000
}
