// Copyright (c) uniconnect Authors.
// Licensed under the MIT License.

/*
Package metrics records connector and scan metrics with Prometheus.

# 概述

Collector 为每次运行持有独立的 Registry，避免与全局默认注册表冲突，
并在批处理任务结束时通过 WriteTextfile 写出 node_exporter textfile
格式的快照。指标按 namespace 隔离。

# 指标

  - connector_calls_total{provider,kind}：每次 Send 的最终结果。
  - connector_call_duration_seconds{provider}：最终一次尝试的耗时。
  - connector_retries_total{provider}：消耗的重试次数。
  - scan_verdicts_total{verdict}：批量扫描的判定结果。
  - scan_confidence：非错误判定的置信度分布。

Collector 同时实现 connector.Observer 与 batch.VerdictObserver。
*/
package metrics
