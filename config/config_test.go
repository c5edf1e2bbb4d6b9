package config

import (
	"path/filepath"
	"testing"
)

func Test_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	saved := &Config{
		BaseUrl:       "https://api.example.dev/v1",
		Token:         "tok",
		DefaultFormat: "json",
	}
	if err := Save(path, saved); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if *loaded != *saved {
		t.Fatalf("roundtrip mismatch: %+v != %+v", loaded, saved)
	}
}

func Test_LoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := Save(path, &Config{BaseUrl: "not a url"}); err == nil {
		t.Fatal("expected validation to reject a bad base url")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func Test_SetConfigJsonOverridesPartially(t *testing.T) {
	original := ClientConfig
	defer func() { ClientConfig = original }()

	ClientConfig = Config{BaseUrl: "https://api.example.dev/v1", Token: "old", DefaultFormat: "table"}
	if err := SetConfigJson(`{"token":"new"}`); err != nil {
		t.Fatal(err)
	}
	if ClientConfig.Token != "new" {
		t.Fatalf("token not overridden: %+v", ClientConfig)
	}
	if ClientConfig.BaseUrl != "https://api.example.dev/v1" || ClientConfig.DefaultFormat != "table" {
		t.Fatalf("unset fields must keep their values: %+v", ClientConfig)
	}
	if err := SetConfigJson("{bad json"); err == nil {
		t.Fatal("expected a parse error")
	}
}
