package common

const (
	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvPrefix string = "ALERTA"

	EnvKeyAlertaDBType string = "ALERTA_DB_TYPE"
	EnvKeyAlertaDbPath string = "ALERTA_DB_PATH"
	EnvKeyAlertaDbDSN  string = "ALERTA_DB_DSN"

	EnvKeyAlertaHttpHostPort string = "ALERTA_HTTP_HOST_PORT"

	EnvKeyAlertaTransport      string = "ALERTA_TRANSPORT"
	EnvKeyAlertaControllerName string = "ALERTA_CONTROLLER_NAME"
	EnvKeyAlertaCompanionName  string = "ALERTA_COMPANION_NAME"
	EnvKeyAlertaPeerMatch      string = "ALERTA_PEER_MATCH"
	EnvKeyAlertaSPPServiceName string = "ALERTA_SPP_SERVICE_NAME"
	EnvKeyAlertaTCPListen      string = "ALERTA_TCP_LISTEN"
	EnvKeyAlertaTCPPeers       string = "ALERTA_TCP_PEERS"

	EnvKeyAlertaDefaultRate  string = "ALERTA_DEFAULT_RATE"
	EnvKeyAlertaDefaultBurst string = "ALERTA_DEFAULT_BURST"

	DefaultControllerName string = "ESP32_Alerta"
	DefaultCompanionName  string = "S22+ de Perik24"
	DefaultSPPServiceName string = "AlertaMesh"
	DefaultHttpHostPort   string = ":1080"

	LoggerNameAlertaCore    string = "alerta_core"
	LoggerNameRegistry      string = "registry"
	LoggerNameLink          string = "link"
	LoggerNameBluez         string = "bluez"
	LoggerNameRelay         string = "relay"
	LoggerNameNotify        string = "notify"
	LoggerNameRestfulServer string = "restful_server"

	LoggerFieldAlertaCategory  string = "category"
	LoggerCategoryAlertHistory string = "history"
	LoggerCategoryAlertButton  string = "button"
	LoggerCategorySetting      string = "setting"
	LoggerCategorySender       string = "sender"
	LoggerCategoryReceiver     string = "receiver"
	LoggerCategorySession      string = "session"
	LoggerFieldPeer            string = "peer"
)
