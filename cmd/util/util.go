package util

import (
	"strings"

	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// --------------------------------------------------------------------------
// Demo message protocol
// --------------------------------------------------------------------------

// Message-type codes of the demo echo protocol spoken by `dipc serve` and
// `dipc ping`. The connection layer itself never interprets these.
const (
	MsgTRegister int64 = iota
	MsgTEcho
)

// MessageTypeNames maps the demo message-type codes to printable names for
// connection diagnostics.
var MessageTypeNames = []string{"Register", "Echo"}

// --------------------------------------------------------------------------
// Help text formatting
// --------------------------------------------------------------------------

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// SetupConnectionFlags adds the connection-level flags shared by every
// command that opens a socket
func SetupConnectionFlags(cmd *cobra.Command) {
	key := "endpoint"
	cmd.PersistentFlags().String(key, "/tmp/dipc.sock", WrapString("The path of the unix domain socket"))

	key = "cookie"
	cmd.PersistentFlags().Uint64(key, common.DefaultCookie, WrapString("The protocol-integrity cookie embedded in every frame. Both ends must agree on it"))

	key = "max-message-size"
	cmd.PersistentFlags().Uint64(key, common.DefaultMaxMessageSize, WrapString("The largest accepted payload in bytes"))

	key = "max-batch-messages"
	cmd.PersistentFlags().Int(key, common.DefaultMaxBatchMessages, WrapString("How many queued async writes one flush may coalesce"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("The log level (debug, info, warn, error)"))
}

// InitConfig initializes configuration from environment variables. The
// format of the environment variables is DIPC_<flag> (e.g. DIPC_ENDPOINT)
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dipc")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetConnectionConfig reads the connection parameters from viper
func GetConnectionConfig() common.Config {
	return common.Config{
		Cookie:           viper.GetUint64("cookie"),
		MaxMessageSize:   viper.GetUint64("max-message-size"),
		MaxBatchMessages: viper.GetInt("max-batch-messages"),
	}
}

// GetEndpoint retrieves the configured socket path
func GetEndpoint() string {
	return viper.GetString("endpoint")
}

// GetLogLevel retrieves the configured log level
func GetLogLevel() string {
	return viper.GetString("log-level")
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
