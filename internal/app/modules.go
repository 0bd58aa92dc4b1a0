package app

import (
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/modules/concat"
	"github.com/vk/assetgrid/modules/copyfiles"
	"github.com/vk/assetgrid/modules/htmlmin"
	"github.com/vk/assetgrid/modules/less"
	"github.com/vk/assetgrid/modules/publish"
	"github.com/vk/assetgrid/modules/replace"
)

// coreModules is the definitive list of all transform kinds compiled into
// the assetgrid binary.
var coreModules = []registry.Module{
	&less.Module{},
	&htmlmin.Module{},
	&copyfiles.Module{},
	&replace.Module{},
	&concat.Module{},
	&publish.Module{},
}
