package configurator

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestMain(m *testing.M) {
	flag.Set("stderrthreshold", "ERROR")
	flag.Set("logtostderr", "true")
	flag.Parse()
	os.Exit(m.Run())
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	if v.GetFloat64(CfgGeometryThickness) != 0.035 {
		t.Error("thickness", v.GetFloat64(CfgGeometryThickness))
	}
	if v.GetFloat64(CfgGeometryArcTolerance) != 0.01 {
		t.Error("arc tolerance", v.GetFloat64(CfgGeometryArcTolerance))
	}
	if v.GetInt(CfgGeometryMinCircleSegments) != 8 {
		t.Error("min circle segments", v.GetInt(CfgGeometryMinCircleSegments))
	}
	if v.GetBool(CfgParserStrictApertures) {
		t.Error("strict apertures must be off by default")
	}
	if v.GetString(CfgOutputUnits) != "mm" {
		t.Error("units", v.GetString(CfgOutputUnits))
	}
}

func TestProcessConfigFile(t *testing.T) {
	dir := t.TempDir()

	v := viper.New()
	SetDefaults(v)
	v.AddConfigPath(dir)
	if err := ProcessConfigFile(v); err != ErrNoConfigFile {
		t.Fatal("missing file:", err)
	}

	cfg := "[geometry]\nThickness = 0.07\n\n[parser]\nStrictApertures = true\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	v = viper.New()
	SetDefaults(v)
	v.AddConfigPath(dir)
	if err := ProcessConfigFile(v); err != nil {
		t.Fatal(err)
	}
	if v.GetFloat64(CfgGeometryThickness) != 0.07 {
		t.Error("thickness from file", v.GetFloat64(CfgGeometryThickness))
	}
	if !v.GetBool(CfgParserStrictApertures) {
		t.Error("strict apertures from file")
	}
	// untouched keys keep the defaults
	if v.GetInt(CfgGeometryMinCircleSegments) != 8 {
		t.Error("min circle segments", v.GetInt(CfgGeometryMinCircleSegments))
	}
	DiagnosticAllCfgPrint(v)
}
