// defaults.go: default values for the configuration
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultBundlePath is used when no bundle path is configured.
const DefaultBundlePath = "bangla_speech_models.yaml"

// setDefaultConfig sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("main.name", "Bangla Speech Gender & Region API")

	v.SetDefault("model.bundlepath", DefaultBundlePath)

	v.SetDefault("features.samplerate", 16000)
	v.SetDefault("features.nmfcc", 61)
	v.SetDefault("features.length", 122)
	v.SetDefault("features.cache.enabled", false)
	v.SetDefault("features.cache.ttl", 10*time.Minute)

	v.SetDefault("audio.ffmpegpath", "")
	v.SetDefault("audio.useffmpeg", true)

	v.SetDefault("webserver.host", "0.0.0.0")
	v.SetDefault("webserver.port", "8000")
	v.SetDefault("webserver.ingest", IngestMemory)
	v.SetDefault("webserver.tempdir", "")
	v.SetDefault("webserver.bodylimit", "25M")
	v.SetDefault("webserver.maxconcurrent", 0)
	v.SetDefault("webserver.ratelimit", 0.0)
	v.SetDefault("webserver.allowedorigins", []string{"*"})
	v.SetDefault("webserver.readtimeout", 30*time.Second)
	v.SetDefault("webserver.writetimeout", 30*time.Second)
	v.SetDefault("webserver.idletimeout", 120*time.Second)
	v.SetDefault("webserver.shutdowntimeout", 10*time.Second)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.listen", "0.0.0.0:8090")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")

	v.SetDefault("logging.defaultlevel", "info")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.fileoutput.enabled", false)
	v.SetDefault("logging.fileoutput.path", "logs/voiceid.log")
	v.SetDefault("logging.fileoutput.level", "info")
	v.SetDefault("logging.fileoutput.maxsize", 100)
	v.SetDefault("logging.fileoutput.maxage", 30)
	v.SetDefault("logging.fileoutput.maxrotatedfiles", 10)
	v.SetDefault("logging.fileoutput.compress", false)
}
