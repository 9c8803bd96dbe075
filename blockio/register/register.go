package register

import (
	_ "github.com/xxxsen/tgdav/blockio/local"
	_ "github.com/xxxsen/tgdav/blockio/mem"
)
