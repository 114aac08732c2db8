// Package logx configures patternlog's own structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller), or rendered
//     through a pattern layout when the app supplies Config.ConsoleOut
//   - File output JSON-structured
package logx
