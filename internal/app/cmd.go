package app

// Command はgamblrバイナリのサブコマンド。
type Command string

const (
	CommandServe   Command = "serve"
	CommandWorker  Command = "worker"  // 期限切れセッションの定期削除
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はdistrolessイメージのHEALTHCHECK用。
	CommandHealthcheck Command = "healthcheck"
	// CommandDeleteUser はユーザー名を引数に取り、そのユーザーを削除する。
	CommandDeleteUser Command = "deleteuser"
)

var knownCommands = map[string]Command{
	string(CommandServe):       CommandServe,
	string(CommandWorker):      CommandWorker,
	string(CommandMigrate):     CommandMigrate,
	string(CommandHealthcheck): CommandHealthcheck,
	string(CommandDeleteUser):  CommandDeleteUser,
}

// ParseCommand は先頭の引数をサブコマンドとして解釈する。
// 引数がない場合や未知の値はserveとして扱う。
func ParseCommand(args []string) Command {
	if len(args) > 0 {
		if cmd, ok := knownCommands[args[0]]; ok {
			return cmd
		}
	}
	return CommandServe
}

// CommandArg はサブコマンドに続く最初の引数を返す。
func CommandArg(args []string) string {
	if len(args) < 2 {
		return ""
	}
	return args[1]
}
