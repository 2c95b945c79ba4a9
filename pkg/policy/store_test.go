package policy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStoreActivateSwapsAtomically(t *testing.T) {
	store := NewStore(nil)
	if store.Active() != nil {
		t.Fatal("new store has an active snapshot")
	}

	a := parseValid(t)
	store.Activate(a)
	if store.Active() != a {
		t.Fatal("Activate did not install snapshot")
	}

	// A trace holding the old snapshot keeps seeing it after a swap.
	held := store.Active()
	b, err := Parse([]byte(strings.Replace(validDoc, `"weight": 80`, `"weight": 90`, 1)), "b")
	if err != nil {
		t.Fatal(err)
	}
	store.Activate(b)

	if store.Active() != b {
		t.Error("swap did not activate new snapshot")
	}
	if held != a || held.Hash() != a.Hash() {
		t.Error("held snapshot changed across swap")
	}
}

func TestStoreOnSwapObserver(t *testing.T) {
	store := NewStore(nil)
	var gotOld, gotNew *Snapshot
	store.OnSwap(func(old, new *Snapshot) {
		gotOld, gotNew = old, new
	})

	snap := parseValid(t)
	store.Activate(snap)

	if gotOld != nil {
		t.Errorf("first swap old = %v, want nil", gotOld)
	}
	if gotNew != snap {
		t.Error("observer did not receive new snapshot")
	}
}

func TestLoadAndActivateKeepsPriorOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.json")
	if err := os.WriteFile(path, []byte(validDoc), 0o600); err != nil {
		t.Fatal(err)
	}

	store := NewStore(nil)
	snap, err := store.LoadAndActivate(path)
	if err != nil {
		t.Fatalf("LoadAndActivate: %v", err)
	}

	// Corrupt the file; a reload must fail and leave the snapshot alone.
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := store.LoadAndActivate(path); err == nil {
		t.Fatal("LoadAndActivate accepted corrupt policy")
	}
	if store.Active() != snap {
		t.Error("active snapshot changed after failed reload")
	}
}
