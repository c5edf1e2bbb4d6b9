package main

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"agenthub/common"
)

func InitLogger() {
	encoder := getEncoder()
	debug := os.Getenv(common.AhubDebug)
	name := os.Getenv(common.AhubName)
	if name == "" {
		name = "ahub"
	}
	fileWriteSyncer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(common.ClientLogPath, name+".log"),
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   false,
	})
	var core zapcore.Core
	if debug != "" {
		core = zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(fileWriteSyncer, zapcore.AddSync(os.Stderr)), zap.DebugLevel)
	} else {
		core = zapcore.NewCore(encoder, fileWriteSyncer, zap.InfoLevel)
	}
	logger := zap.New(core)
	zap.ReplaceGlobals(logger)
}

func getEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
}
