package main

// Compiled-in modules register themselves with the core registry.
import (
	_ "github.com/flemzord/dashbot/internal/gateway"
	_ "github.com/flemzord/dashbot/modules/channel/telegram"
	_ "github.com/flemzord/dashbot/modules/history/csv"
	_ "github.com/flemzord/dashbot/modules/history/sqlite"
	_ "github.com/flemzord/dashbot/modules/publish/sftp"
)
