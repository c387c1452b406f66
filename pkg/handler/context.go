package handler

// DI for all handlers alike.

import (
	"github.com/yumyai/bgcselect/internal/config"
	"github.com/yumyai/bgcselect/pkg/db"
	"github.com/yumyai/bgcselect/pkg/middle"
)

type AppContext struct {
	Config  *config.Config
	Store   *db.ResultDB
	Jobs    *JobManager
	Metrics *middle.Metrics
}
