package app

// Command はサブコマンド名。
type Command string

const (
	// CommandServe はAPIサーバーを起動する。引数なしの既定値。
	CommandServe Command = "serve"
	// CommandMigrate は埋め込みマイグレーションを最新まで適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は稼働中サーバーの /health を確認して終了する。
	// distrolessイメージのHEALTHCHECKから呼ばれるため、設定の読み込みを行わない。
	CommandHealthcheck Command = "healthcheck"
)

var commands = map[string]Command{
	string(CommandServe):       CommandServe,
	string(CommandMigrate):     CommandMigrate,
	string(CommandHealthcheck): CommandHealthcheck,
}

// ParseCommand は先頭の引数をサブコマンドとして解釈する。
// 残りの引数は無視し、未知の名前や空の引数はCommandServeとして扱う。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	if cmd, ok := commands[args[0]]; ok {
		return cmd
	}
	return CommandServe
}
