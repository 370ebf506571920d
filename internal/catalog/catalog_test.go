package catalog_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"rommate/internal/catalog"
	"rommate/internal/systems"
)

const snesDAT = `<?xml version="1.0"?>
<!DOCTYPE datafile PUBLIC "-//Logiqx//DTD ROM Management Datafile//EN" "http://www.logiqx.com/dtds/datafile.dtd">
<datafile>
	<header>
		<name>Nintendo - Super Nintendo Entertainment System</name>
		<version>20240101-000000</version>
	</header>
	<game name="Super Game (USA)">
		<description>Super Game (USA)</description>
		<rom name="Super Game (USA).sfc" size="1048576" crc="abcd1234" md5="0123456789abcdef0123456789abcdef" sha1="0123456789abcdef0123456789abcdef01234567"/>
	</game>
	<game name="Super Game (Europe)">
		<rom name="Super Game (Europe).sfc" size="1048576" crc="ABCD1234"/>
	</game>
	<game name="No CRC">
		<rom name="nocrc.sfc" size="10"/>
	</game>
	<game name="Bad Size">
		<rom name="bad.sfc" size="lots" crc="00000001"/>
	</game>
</datafile>`

func TestParseIndexesSharedCRCs(t *testing.T) {
	cat, err := catalog.Parse(strings.NewReader(snesDAT), systems.SNES, "snes.dat")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cat.Len() != 3 {
		t.Fatalf("expected 3 indexed records, got %d", cat.Len())
	}
	if cat.Name != "Nintendo - Super Nintendo Entertainment System" || cat.Version != "20240101-000000" {
		t.Fatalf("unexpected header: %q %q", cat.Name, cat.Version)
	}

	matches := cat.Lookup("abcd1234")
	if len(matches) != 2 {
		t.Fatalf("expected both regional records, got %+v", matches)
	}
	if matches[0].Game != "Super Game (USA)" || matches[1].Game != "Super Game (Europe)" {
		t.Fatalf("expected document order, got %+v", matches)
	}
	if matches[0].MD5 != "0123456789ABCDEF0123456789ABCDEF" {
		t.Fatalf("expected uppercased md5, got %q", matches[0].MD5)
	}
	if matches[1].MD5 != "" || matches[1].SHA1 != "" {
		t.Fatalf("absent digests must stay empty: %+v", matches[1])
	}
	if bad := cat.Lookup("00000001"); len(bad) != 1 || bad[0].Size != -1 {
		t.Fatalf("expected malformed size to be -1, got %+v", bad)
	}
	if cat.Titles() != 3 {
		t.Fatalf("expected 3 titles, got %d", cat.Titles())
	}
}

func TestParseMalformedDocument(t *testing.T) {
	_, err := catalog.Parse(strings.NewReader(`<datafile><game name="x"><rom crc="1"></datafile>`), systems.NES, "nes.dat")
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestStoreResolvesFamilyRoots(t *testing.T) {
	store := catalog.NewStore(afero.NewMemMapFs(), "/db/no-intro", "/db/redump", nil)
	if got := store.Path(systems.SNES); got != "/db/no-intro/snes.dat" {
		t.Fatalf("unexpected cartridge path %q", got)
	}
	if got := store.Path(systems.GameCube); got != "/db/redump/gamecube.dat" {
		t.Fatalf("unexpected disc path %q", got)
	}
}

func TestStoreMissingAndMalformedAreEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/db/no-intro/nes.dat", []byte("<datafile><game"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := catalog.NewStore(fs, "/db/no-intro", "/db/redump", nil)

	if cat := store.Load(systems.GameBoy); cat == nil || !cat.Empty() {
		t.Fatalf("expected empty catalog for missing DAT, got %+v", cat)
	}
	if cat := store.Load(systems.NES); cat == nil || !cat.Empty() {
		t.Fatalf("expected empty catalog for malformed DAT, got %+v", cat)
	}
	if store.Exists(systems.GameBoy) || !store.Exists(systems.NES) {
		t.Fatal("Exists mismatch")
	}
}

func TestStoreLoadsOncePerSystem(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/db/no-intro/snes.dat", []byte(snesDAT), 0o644); err != nil {
		t.Fatal(err)
	}
	store := catalog.NewStore(fs, "/db/no-intro", "/db/redump", nil)

	const callers = 16
	results := make([]*catalog.Catalog, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = store.Load(systems.SNES)
		}()
	}
	wg.Wait()

	for i, cat := range results {
		if cat != results[0] {
			t.Fatalf("caller %d observed a different catalog instance", i)
		}
	}
	if results[0].Len() != 3 {
		t.Fatalf("unexpected catalog size %d", results[0].Len())
	}
	if store.Loads() != 1 {
		t.Fatalf("expected a single parse, got %d", store.Loads())
	}

	// Missing systems are cached too.
	store.Load(systems.GameBoy)
	store.Load(systems.GameBoy)
	if store.Loads() != 2 {
		t.Fatalf("expected missing catalog to be cached, got %d loads", store.Loads())
	}
}
