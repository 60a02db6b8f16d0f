// Copyright 2018 Vasily Turchenko <turchenkov@gmail.com>. All rights reserved.
// Use of this source code is free

package main

import (
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/cmd/gerber2solid/cmd"
)

func main() {
	cmd.Execute()
}
