package register

import (
	_ "github.com/xxxsen/tgdav/plugin/accesslog"
	_ "github.com/xxxsen/tgdav/plugin/obfuscate"
	_ "github.com/xxxsen/tgdav/plugin/readonly"
)
