package ping

import (
	"bytes"
	"fmt"
	"time"

	cmdUtil "github.com/ValentinKolb/dIPC/cmd/util"
	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/ValentinKolb/dIPC/ipc/conn"
	"github.com/ValentinKolb/dIPC/ipc/socket"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	PingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Round-trip messages against a running dIPC server",
		Long:  cmdUtil.WrapString("Connect to a running dIPC echo server, register, and measure synchronous request/response round trips."),
		RunE:  run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupConnectionFlags(PingCmd)

	key := "count"
	PingCmd.PersistentFlags().Int(key, 5, cmdUtil.WrapString("How many echo round trips to perform"))

	key = "size"
	PingCmd.PersistentFlags().Int(key, 64, cmdUtil.WrapString("Payload size in bytes"))

	key = "retries"
	PingCmd.PersistentFlags().Int(key, 3, cmdUtil.WrapString("How many times to retry the initial connect"))
}

func run(cmd *cobra.Command, args []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}
	common.InitLoggers(cmdUtil.GetLogLevel())

	cfg := cmdUtil.GetConnectionConfig()
	endpoint := cmdUtil.GetEndpoint()
	count := viper.GetInt("count")
	size := viper.GetInt("size")
	retries := viper.GetInt("retries")

	sock, err := socket.DialRetry(endpoint, retries, 10*time.Second)
	if err != nil {
		return err
	}

	c := conn.New(cfg, sock)
	defer c.Close()

	// Register with the server; the frame itself is the handshake.
	if err := c.WriteMessage(cmdUtil.MsgTRegister, nil); err != nil {
		return fmt.Errorf("registration failed: %v", err)
	}

	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(i)
	}

	for i := 0; i < count; i++ {
		start := time.Now()

		if err := c.WriteMessage(cmdUtil.MsgTEcho, payload); err != nil {
			return fmt.Errorf("echo %d: write failed: %v", i, err)
		}

		header, reply, err := c.ReadMessage()
		if err != nil {
			return fmt.Errorf("echo %d: read failed: %v", i, err)
		}
		if header.Cookie != cfg.Cookie {
			return fmt.Errorf("echo %d: cookie mismatch: got %#016x", i, header.Cookie)
		}
		if header.Type != cmdUtil.MsgTEcho {
			return fmt.Errorf("echo %d: unexpected message type %d", i, header.Type)
		}
		if !bytes.Equal(reply, payload) {
			return fmt.Errorf("echo %d: payload corrupted", i)
		}

		fmt.Printf("echo %d: %d bytes in %s\n", i, len(reply), time.Since(start))
	}

	fmt.Printf("connection stats: %s\n", c.DebugString())
	return nil
}
