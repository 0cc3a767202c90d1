package config

import (
	"github.com/zan8in/gologger"
	"github.com/zan8in/hefest/pkg/log"
)

const Version = "1.0.0"

func ShowBanner() {
	gologger.Print().Msgf("\n|\tH E F E S T\t>\t%s\n\n", log.LogColor.Banner(Version))
}
