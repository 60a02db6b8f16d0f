package configurator

import (
	"errors"

	"github.com/golang/glog"
	"github.com/spf13/viper"
)

const (
	CfgCommonPrintStatistic string = "common.PrintStatistic"
	CfgCommonPrintWarnings  string = "common.PrintWarnings"

	CfgParserStrictApertures    string = "parser.StrictApertures"
	CfgParserArcRadiusTolerance string = "parser.ArcRadiusTolerance"
	CfgParserMaxCommands        string = "parser.MaxCommands"

	CfgGeometryThickness           string = "geometry.Thickness"
	CfgGeometrySoldermaskThickness string = "geometry.SoldermaskThickness"
	CfgGeometrySilkscreenThickness string = "geometry.SilkscreenThickness"
	CfgGeometryArcTolerance        string = "geometry.ArcTolerance"
	CfgGeometryMinCircleSegments   string = "geometry.MinCircleSegments"

	CfgImportMaxFileSize string = "import.MaxFileSize"
	CfgImportWorkers     string = "import.Workers"

	CfgOutputUnits   string = "output.Units"
	CfgOutputSTLFile string = "output.STLFile"
	CfgOutputPDFFile string = "output.PDFFile"

	CfgRenderGeneratePNG  string = "renderer.GeneratePNG"
	CfgRenderOutFile      string = "renderer.OutFile"
	CfgRenderResolution   string = "renderer.Resolution"
	CfgRenderDrawContours string = "renderer.DrawContours"
)

var ErrNoConfigFile = errors.New("configuration file error. Using defaults")

func SetDefaults(v *viper.Viper) {
	v.SetConfigName("config") // no need to include file extension
	v.AddConfigPath(".")      // set the path of your config file
	v.SetConfigType("toml")

	// diagnostic messages
	v.SetDefault(CfgCommonPrintStatistic, true)
	v.SetDefault(CfgCommonPrintWarnings, true)

	//
	v.SetDefault(CfgParserStrictApertures, false)
	v.SetDefault(CfgParserArcRadiusTolerance, 0.01)
	v.SetDefault(CfgParserMaxCommands, 0)

	// mm, thickness of 1 oz copper
	v.SetDefault(CfgGeometryThickness, 0.035)
	v.SetDefault(CfgGeometrySoldermaskThickness, 0.025)
	v.SetDefault(CfgGeometrySilkscreenThickness, 0.020)
	v.SetDefault(CfgGeometryArcTolerance, 0.01)
	v.SetDefault(CfgGeometryMinCircleSegments, 8)

	//
	v.SetDefault(CfgImportMaxFileSize, 64<<20)
	v.SetDefault(CfgImportWorkers, 4)

	//
	v.SetDefault(CfgOutputUnits, "mm")
	v.SetDefault(CfgOutputSTLFile, "")
	v.SetDefault(CfgOutputPDFFile, "")

	//
	v.SetDefault(CfgRenderGeneratePNG, false)
	v.SetDefault(CfgRenderOutFile, "out.png")
	v.SetDefault(CfgRenderResolution, 0.025)
	v.SetDefault(CfgRenderDrawContours, false)
}

// ProcessConfigFile reads the configuration file if there is one.
// A missing file is not fatal, the defaults stay in place.
func ProcessConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return ErrNoConfigFile
	}
	return err
}

func DiagnosticAllCfgPrint(v *viper.Viper) {
	c := v.AllSettings()
	for key, data := range c {
		glog.Infoln(key, ":", data)
	}
}
