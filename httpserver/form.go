package httpserver

// onboardFormHTML is the operator-facing onboarding form. It posts the two
// identifying strings and the optional port hint to /create.
const onboardFormHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>BizCalc Client Onboarding</title>
  <style>
    body { font-family: sans-serif; max-width: 40em; margin: 3em auto; }
    label { display: block; margin-top: 1em; }
    input { width: 100%; padding: 0.4em; }
    button { margin-top: 1.5em; padding: 0.5em 2em; }
  </style>
</head>
<body>
  <h1>Create client deployment</h1>
  <form method="POST" action="/create">
    <label>Client id
      <input name="client" placeholder="acme" required>
    </label>
    <label>Subdomain
      <input name="subdomain" placeholder="acme.example.com" required>
    </label>
    <label>Port (leave empty to auto-allocate)
      <input name="port" placeholder="3001">
    </label>
    <button type="submit">Create</button>
  </form>
  <p><a href="/api/clients">Existing clients</a></p>
</body>
</html>
`
