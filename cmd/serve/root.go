package serve

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	cmdUtil "github.com/ValentinKolb/dIPC/cmd/util"
	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/ValentinKolb/dIPC/ipc/conn"
	"github.com/ValentinKolb/dIPC/ipc/registry"
	"github.com/ValentinKolb/dIPC/ipc/socket"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}

	ServeCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the dIPC echo server",
		Long: cmdUtil.WrapString("Start an echo server on a unix domain socket. Every attached client gets its own peer connection; echo requests are answered asynchronously and disconnected clients are evicted by a periodic liveness sweep. Configuration can be set via command line flags or environment variables (format DIPC_<flag>, e.g. DIPC_ENDPOINT=/tmp/dipc.sock)."),
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupConnectionFlags(ServeCmd)

	key := "sweep-interval"
	ServeCmd.PersistentFlags().Int(key, 10, cmdUtil.WrapString("Seconds between liveness sweeps over all peers (0 disables sweeping)"))
}

// processConfig assembles the server configuration from viper
func processConfig(cmd *cobra.Command, args []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	serveCmdConfig.Connection = cmdUtil.GetConnectionConfig()
	serveCmdConfig.Endpoint = cmdUtil.GetEndpoint()
	serveCmdConfig.SweepIntervalSec = viper.GetInt("sweep-interval")
	serveCmdConfig.LogLevel = cmdUtil.GetLogLevel()

	if serveCmdConfig.Endpoint == "" {
		return fmt.Errorf("no endpoint provided")
	}
	return nil
}

func run(cmd *cobra.Command, args []string) error {
	common.InitLoggers(serveCmdConfig.LogLevel)
	Logger := registry.Logger

	Logger.Infof("Starting dIPC echo server")
	Logger.Infof(serveCmdConfig.String())

	// Remove a stale socket file from a previous run
	if err := os.RemoveAll(serveCmdConfig.Endpoint); err != nil {
		return fmt.Errorf("failed to remove existing socket: %v", err)
	}

	listener, err := net.Listen("unix", serveCmdConfig.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to create unix socket: %v", err)
	}
	defer listener.Close()

	peers := registry.New()

	// Periodic liveness sweep
	if serveCmdConfig.SweepIntervalSec > 0 {
		stopCh := make(chan struct{})
		defer close(stopCh)
		go peers.RunSweeper(
			time.Duration(serveCmdConfig.SweepIntervalSec)*time.Second,
			stopCh,
			func(id string, p *conn.PeerConnection) {
				Logger.Infof("peer %s disconnected silently (%s)", id, p.DebugString())
			},
		)
	}

	// Echo handler: the first message registers the peer, everything is
	// echoed back asynchronously with the same type and payload.
	messageHandler := func(p *conn.PeerConnection, msgType int64, payload []byte) {
		if !p.Registered() {
			p.Register()
		}
		if msgType == cmdUtil.MsgTRegister {
			return
		}
		p.WriteMessageAsync(msgType, payload, func(err error) {
			if err != nil {
				Logger.Errorf("echo to %s failed: %v", p.DebugLabel(), err)
			}
		})
	}

	// Accept loop
	for nextID := 0; ; nextID++ {
		c, err := listener.Accept()
		if err != nil {
			return fmt.Errorf("accept error: %v", err)
		}

		id := "client-" + strconv.Itoa(nextID)
		errorHandler := func(p *conn.PeerConnection, err error) {
			Logger.Infof("peer %s closed: %v (%s)", id, err, p.DebugString())
			if prev, ok := peers.Remove(id); ok {
				_ = prev.Close()
			}
		}

		peer := conn.NewPeer(
			serveCmdConfig.Connection,
			socket.New(c),
			messageHandler,
			errorHandler,
			id,
			cmdUtil.MessageTypeNames,
		)
		peers.Add(id, peer)
		Logger.Infof("peer %s attached, %d peer(s) connected", id, peers.Len())

		go peer.ProcessMessages()
	}
}
