// Copyright (c) uniconnect Authors.
// Licensed under the MIT License.

/*
Package connector calls any "prompt in, text out" HTTP API described by a
declarative Config.

A Config names the endpoint, how the credential is attached (header, query
or body), a static body template and the dot-paths where the answer and the
error detail live in the response. BuildRequest renders a request once per
prompt: when any string in the template contains "{prompt}" it is
substituted everywhere, otherwise the prompt is written at prompt_field.

Connector.Send runs the attempt loop. Each outcome is classified into a
types.ErrorKind; rate limits, server errors and timeouts are retried with
exponential backoff, everything else is terminal. Send always returns a
*Response and never panics.

	cfg, err := connector.LoadConfig("openai.json")
	if err != nil {
		return err
	}
	c, err := connector.New(cfg, os.Getenv("OPENAI_API_KEY"), connector.WithLogger(logger))
	if err != nil {
		return err
	}
	defer c.Close()

	resp := c.Send(ctx, "Say hello")
	if !resp.Success {
		return resp.Err()
	}
	fmt.Println(resp.Content)
*/
package connector
