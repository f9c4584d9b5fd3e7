package common

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

const (
	DBTypeFile     = "file"
	DBTypeMemory   = "memory"
	DBTypePostgres = "postgres"

	TransportBluez = "bluez"
	TransportTCP   = "tcp"

	PeerMatchFirst  = "first"
	PeerMatchStrict = "strict"
)

// Config is the process configuration. Keys are read from ALERTA_* env
// variables (a .env file is loaded by the binaries beforehand) or from a
// config file registered on the viper instance.
type Config struct {
	DBType string
	DBPath string
	DBDSN  string

	HttpHostPort string

	Transport      string
	ControllerName string
	CompanionName  string
	PeerMatch      string
	SPPServiceName string
	TCPListen      string
	TCPPeers       string

	DefaultRate  float64
	DefaultBurst int
}

func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("db_type", DBTypeFile)
	v.SetDefault("db_path", "alerta_mesh.db")
	v.SetDefault("db_dsn", "")
	v.SetDefault("http_host_port", DefaultHttpHostPort)
	v.SetDefault("transport", TransportBluez)
	v.SetDefault("controller_name", DefaultControllerName)
	v.SetDefault("companion_name", DefaultCompanionName)
	v.SetDefault("peer_match", PeerMatchFirst)
	v.SetDefault("spp_service_name", DefaultSPPServiceName)
	v.SetDefault("tcp_listen", "")
	v.SetDefault("tcp_peers", "")
	v.SetDefault("default_rate", "1")
	v.SetDefault("default_burst", "3")
	return v
}

func LoadConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DBType:         strings.TrimSpace(v.GetString("db_type")),
		DBPath:         strings.TrimSpace(v.GetString("db_path")),
		DBDSN:          strings.TrimSpace(v.GetString("db_dsn")),
		HttpHostPort:   strings.TrimSpace(v.GetString("http_host_port")),
		Transport:      strings.TrimSpace(v.GetString("transport")),
		ControllerName: v.GetString("controller_name"),
		CompanionName:  v.GetString("companion_name"),
		PeerMatch:      strings.TrimSpace(v.GetString("peer_match")),
		SPPServiceName: v.GetString("spp_service_name"),
		TCPListen:      strings.TrimSpace(v.GetString("tcp_listen")),
		TCPPeers:       v.GetString("tcp_peers"),
	}

	var err error
	if cfg.DefaultRate, err = strconv.ParseFloat(v.GetString("default_rate"), 64); err != nil {
		return nil, fmt.Errorf("invalid %s, should be a float64 value: %w", EnvKeyAlertaDefaultRate, err)
	}
	if cfg.DefaultBurst, err = strconv.Atoi(v.GetString("default_burst")); err != nil {
		return nil, fmt.Errorf("invalid %s, should be an int value: %w", EnvKeyAlertaDefaultBurst, err)
	}

	switch cfg.DBType {
	case DBTypeFile, DBTypeMemory:
	case DBTypePostgres:
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("%s is required when %s=postgres", EnvKeyAlertaDbDSN, EnvKeyAlertaDBType)
		}
	default:
		return nil, fmt.Errorf("unknown %s: %q", EnvKeyAlertaDBType, cfg.DBType)
	}

	switch cfg.Transport {
	case TransportBluez, TransportTCP:
	default:
		return nil, fmt.Errorf("unknown %s: %q", EnvKeyAlertaTransport, cfg.Transport)
	}

	switch cfg.PeerMatch {
	case PeerMatchFirst, PeerMatchStrict:
	default:
		return nil, fmt.Errorf("unknown %s: %q", EnvKeyAlertaPeerMatch, cfg.PeerMatch)
	}

	if cfg.HttpHostPort == "" {
		// fallback to default http port
		cfg.HttpHostPort = DefaultHttpHostPort
	}

	return cfg, nil
}
