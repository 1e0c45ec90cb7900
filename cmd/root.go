package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/nsyszr/flowcount/config"
	"github.com/nsyszr/flowcount/pkg/cmd/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string
var c = new(config.Config)
var cmdHandler = cli.NewHandler(c)

var (
	Version   = "dev-master"
	BuildTime = "undefined"
	GitHash   = "undefined"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "flowcount",
	Short: "Pedestrian traffic of camera scenes",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(cmd.UsageString())
		os.Exit(2)
	},
}

// Execute runs the command and is called by main.main()
func Execute() {
	c.BuildTime = BuildTime
	c.BuildVersion = Version
	c.BuildHash = GitHash

	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.flowcount.yml)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// enable ability to specify config file via flag
		viper.SetConfigFile(cfgFile)
	} else {
		path := absPathify("$HOME")
		if _, err := os.Stat(filepath.Join(path, ".flowcount.yml")); err != nil {
			_, _ = os.Create(filepath.Join(path, ".flowcount.yml"))
		}

		viper.SetConfigType("yaml")
		viper.SetConfigName(".flowcount") // name of config file (without extension)
		viper.AddConfigPath("$HOME")      // adding home directory as first search path
	}
	viper.AutomaticEnv() // read in environment variables that match

	// Fetch settings
	viper.BindEnv("PORT")
	viper.SetDefault("PORT", 8080)

	viper.BindEnv("HOST")
	viper.SetDefault("HOST", "")

	viper.BindEnv("DATABASE_URL")
	viper.SetDefault("DATABASE_URL", "")

	viper.BindEnv("NOTIFY_DRIVER")
	viper.SetDefault("NOTIFY_DRIVER", config.NotifyNone)

	viper.BindEnv("NATS_URL")
	viper.SetDefault("NATS_URL", "")

	viper.BindEnv("MQTT_URL")
	viper.SetDefault("MQTT_URL", "")

	viper.BindEnv("MQTT_CLIENT_ID")
	viper.SetDefault("MQTT_CLIENT_ID", "flowcount")

	viper.BindEnv("MQTT_TOPIC_PREFIX")
	viper.SetDefault("MQTT_TOPIC_PREFIX", "flowcount")

	viper.BindEnv("STREAM_URL_PREFIX")
	viper.SetDefault("STREAM_URL_PREFIX", "")

	viper.BindEnv("RESET_CRON")
	viper.SetDefault("RESET_CRON", []string{"0 0 0 * * ?"})

	viper.BindEnv("RESET_TIMEOUT")
	viper.SetDefault("RESET_TIMEOUT", "3s")

	viper.BindEnv("POLL_INTERVAL")
	viper.SetDefault("POLL_INTERVAL", "500ms")

	viper.BindEnv("IDLE_TIMEOUT")
	viper.SetDefault("IDLE_TIMEOUT", "15s")

	viper.BindEnv("CONNECT_TIMEOUT")
	viper.SetDefault("CONNECT_TIMEOUT", "3s")

	viper.BindEnv("RECONNECT_DELAY")
	viper.SetDefault("RECONNECT_DELAY", "5s")

	viper.BindEnv("NATIVE_ALARM_MODE")
	viper.SetDefault("NATIVE_ALARM_MODE", "realtime")

	viper.BindEnv("NATIVE_LOGIN_RETRY")
	viper.SetDefault("NATIVE_LOGIN_RETRY", "5s")

	viper.BindEnv("NATIVE_HTTP_TIMEOUT")
	viper.SetDefault("NATIVE_HTTP_TIMEOUT", "3s")

	viper.BindEnv("ONLINE_REPORT_INTERVAL")
	viper.SetDefault("ONLINE_REPORT_INTERVAL", "10s")

	viper.BindEnv("SERVER_URL")
	viper.SetDefault("SERVER_URL", "http://localhost:8080")

	viper.BindEnv("LOG_LEVEL")
	viper.SetDefault("LOG_LEVEL", "info")

	viper.BindEnv("LOG_FORMAT")
	viper.SetDefault("LOG_FORMAT", "text")

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf(`Config file not found because "%s"`, err)
		fmt.Println("")
	}

	if err := viper.Unmarshal(c); err != nil {
		log.Fatal(fmt.Sprintf("Could not read config because %s.", err))
	}
}

func absPathify(inPath string) string {
	if strings.HasPrefix(inPath, "$HOME") {
		inPath = userHomeDir() + inPath[5:]
	}

	if strings.HasPrefix(inPath, "$") {
		end := strings.Index(inPath, string(os.PathSeparator))
		inPath = os.Getenv(inPath[1:end]) + inPath[end:]
	}

	if filepath.IsAbs(inPath) {
		return filepath.Clean(inPath)
	}

	p, err := filepath.Abs(inPath)
	if err == nil {
		return filepath.Clean(p)
	}
	return ""
}

func userHomeDir() string {
	if runtime.GOOS == "windows" {
		home := os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
		if home == "" {
			home = os.Getenv("USERPROFILE")
		}
		return home
	}
	return os.Getenv("HOME")
}
